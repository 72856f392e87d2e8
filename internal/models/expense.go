package models

// DefaultCategory is used when an expense is recorded without a category.
const DefaultCategory = "General"

// Expense represents a shared cost fronted by one user and split equally
// among its participants.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Amount is the total paid. Always positive.
	Amount float64

	// Description is free text shown in expense lists.
	Description string

	// Category groups expenses for filtering (e.g., "Food", "Rent").
	Category string

	// Date is the Unix timestamp when the expense happened.
	Date int64

	// PayerID is the user who fronted the money.
	PayerID string

	// Participants are the user IDs sharing the cost. The payer may or may not
	// be one of them. Never empty for records created through the ledger.
	Participants []string

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// Involves reports whether the user paid for or shares the expense.
func (e *Expense) Involves(userID string) bool {
	if e.PayerID == userID {
		return true
	}
	for _, p := range e.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// ExpenseDetail is an expense joined with display data for the people on it.
type ExpenseDetail struct {
	Expense
	Payer        UserSummary
	Participants []UserSummary
}
