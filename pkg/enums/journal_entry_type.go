package enums

import "fmt"

// JournalEntryType classifies why money moved.
type JournalEntryType string

const (
	JournalEntryTypeCapture         JournalEntryType = "capture"
	JournalEntryTypePartialRefund   JournalEntryType = "partial_refund"
	JournalEntryTypeDisputeReversal JournalEntryType = "dispute_reversal"
	JournalEntryTypeAdjustment      JournalEntryType = "adjustment"
	JournalEntryTypeOther           JournalEntryType = "other"
)

var validJournalEntryTypes = []JournalEntryType{
	JournalEntryTypeCapture,
	JournalEntryTypePartialRefund,
	JournalEntryTypeDisputeReversal,
	JournalEntryTypeAdjustment,
	JournalEntryTypeOther,
}

// IsValid reports whether the value is known.
func (t JournalEntryType) IsValid() bool {
	for _, candidate := range validJournalEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseJournalEntryType converts raw input into a JournalEntryType.
func ParseJournalEntryType(value string) (JournalEntryType, error) {
	for _, candidate := range validJournalEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid journal entry type %q", value)
}
