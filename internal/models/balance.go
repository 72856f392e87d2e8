package models

// Balance is the net amount between the viewing user and one counterparty.
// Positive means the counterparty owes the viewer; negative means the viewer
// owes the counterparty. Amount is rounded to cents.
type Balance struct {
	Counterparty UserSummary
	Amount       float64
}
