package enums

import "fmt"

// PaymentDirection distinguishes money coming into the platform from money
// paid out of it.
type PaymentDirection string

const (
	PaymentDirectionPayin  PaymentDirection = "payin"
	PaymentDirectionPayout PaymentDirection = "payout"
)

var validPaymentDirections = []PaymentDirection{
	PaymentDirectionPayin,
	PaymentDirectionPayout,
}

// IsValid reports whether the value is known.
func (d PaymentDirection) IsValid() bool {
	for _, candidate := range validPaymentDirections {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParsePaymentDirection converts raw input into a PaymentDirection.
func ParsePaymentDirection(value string) (PaymentDirection, error) {
	for _, candidate := range validPaymentDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment direction %q", value)
}
