package enums

import "fmt"

// PostingSide distinguishes the debit and credit halves of a journal entry.
type PostingSide string

const (
	PostingSideDebit  PostingSide = "dr"
	PostingSideCredit PostingSide = "cr"
)

var validPostingSides = []PostingSide{
	PostingSideDebit,
	PostingSideCredit,
}

// String implements fmt.Stringer.
func (s PostingSide) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s PostingSide) IsValid() bool {
	for _, candidate := range validPostingSides {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePostingSide converts raw input into a PostingSide.
func ParsePostingSide(value string) (PostingSide, error) {
	for _, candidate := range validPostingSides {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid posting side %q", value)
}
