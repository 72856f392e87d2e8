package models

// Settlement represents a direct payment from one user to another.
// Settlements are kept in their own ledger and are not netted against
// expense balances.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// FromUserID is the user who paid.
	FromUserID string

	// ToUserID is the user who received the payment. Never equal to FromUserID.
	ToUserID string

	// Amount is the payment amount. Always positive.
	Amount float64

	// Note is an optional description for the settlement.
	Note string

	// Date is the Unix timestamp of the payment.
	Date int64

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64
}

// SettlementDetail is a settlement joined with both parties' display data.
type SettlementDetail struct {
	Settlement
	From UserSummary
	To   UserSummary
}
