package ledger

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Input rejections. Each one is user-correctable and carries the message
// shown to the caller verbatim.
var (
	ErrRecipientRequired = errors.New("recipient email is required")
	ErrInvalidAmount     = errors.New("amount must be a positive number")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrSelfPayment       = errors.New("cannot record payment to yourself")
)

var rejections = []struct {
	err    error
	reason string
}{
	{ErrRecipientRequired, "recipient_required"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrRecipientNotFound, "recipient_not_found"},
	{ErrSelfPayment, "self_payment"},
}

// RejectionReason returns a short label for an input rejection, or "" when
// err is not one.
func RejectionReason(err error) string {
	for _, r := range rejections {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ""
}

// IsRejection reports whether err is a user-correctable input rejection
// rather than a collaborator failure.
func IsRejection(err error) bool {
	return RejectionReason(err) != ""
}

// ParseAmount parses a user-supplied amount. Surrounding spaces are ignored;
// anything that is not a finite number greater than zero is rejected.
func ParseAmount(raw string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}
