package enums

import "fmt"

// ReconciliationExceptionType classifies a mismatch found while comparing
// posted journal entries against an external statement.
type ReconciliationExceptionType string

const (
	ReconciliationExceptionMissingStatement ReconciliationExceptionType = "missing_statement"
	ReconciliationExceptionAmountMismatch   ReconciliationExceptionType = "amount_mismatch"
	ReconciliationExceptionOrphanedExternal ReconciliationExceptionType = "orphaned_external"
)

var validReconciliationExceptionTypes = []ReconciliationExceptionType{
	ReconciliationExceptionMissingStatement,
	ReconciliationExceptionAmountMismatch,
	ReconciliationExceptionOrphanedExternal,
}

// IsValid reports whether the value is known.
func (t ReconciliationExceptionType) IsValid() bool {
	for _, candidate := range validReconciliationExceptionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseReconciliationExceptionType converts raw input into a
// ReconciliationExceptionType.
func ParseReconciliationExceptionType(value string) (ReconciliationExceptionType, error) {
	for _, candidate := range validReconciliationExceptionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reconciliation exception type %q", value)
}

// ReconciliationExceptionStatus tracks the triage lifecycle of an exception.
type ReconciliationExceptionStatus string

const (
	ReconciliationExceptionStatusOpen     ReconciliationExceptionStatus = "open"
	ReconciliationExceptionStatusResolved ReconciliationExceptionStatus = "resolved"
)

var validReconciliationExceptionStatuses = []ReconciliationExceptionStatus{
	ReconciliationExceptionStatusOpen,
	ReconciliationExceptionStatusResolved,
}

// IsValid reports whether the value is known.
func (s ReconciliationExceptionStatus) IsValid() bool {
	for _, candidate := range validReconciliationExceptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
