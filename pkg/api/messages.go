package api

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Amount is a money amount as the caller typed it. It accepts a JSON number
// or a JSON string and keeps the raw text so the server decides what is a
// valid amount.
type Amount string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*a = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
	default:
		*a = Amount(data)
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Numeric text is written as a JSON
// number, anything else as a string.
func (a Amount) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseFloat(string(a), 64); err == nil && json.Valid([]byte(a)) {
		return []byte(a), nil
	}
	return json.Marshal(string(a))
}

// NewAmount formats v as an Amount.
func NewAmount(v float64) Amount {
	return Amount(strconv.FormatFloat(v, 'f', -1, 64))
}

// User is an account as returned to its owner.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
}

// Person is the public part of a user shown to others.
type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Expense is a recorded shared cost.
type Expense struct {
	ID           string    `json:"id"`
	Amount       float64   `json:"amount"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category"`
	Date         int64     `json:"date"`
	Payer        *Person   `json:"payer"`
	Participants []*Person `json:"participants"`
	CreatedAt    int64     `json:"createdAt"`
}

// Balance is the caller's net position with one counterparty. Positive
// means the counterparty owes the caller.
type Balance struct {
	UserID  string  `json:"userId"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Balance float64 `json:"balance"`
}

// Settlement is a recorded direct payment.
type Settlement struct {
	ID        string  `json:"id"`
	From      *Person `json:"from"`
	To        *Person `json:"to"`
	Amount    float64 `json:"amount"`
	Note      string  `json:"note,omitempty"`
	Date      int64   `json:"date"`
	CreatedAt int64   `json:"createdAt"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// CreateExpenseRequest records an expense paid by the caller. The caller is
// always a participant. SplitWithAll takes precedence over SplitWith.
type CreateExpenseRequest struct {
	Amount       Amount   `json:"amount"`
	Description  string   `json:"description,omitempty"`
	Category     string   `json:"category,omitempty"`
	Date         int64    `json:"date,omitempty"`
	SplitWithAll bool     `json:"splitWithAll,omitempty"`
	SplitWith    []string `json:"splitWith,omitempty"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

// ListExpensesRequest filters the caller's expenses. Sort is "date" or
// "amount"; Order is "desc" or "asc".
type ListExpensesRequest struct {
	Category string `json:"category,omitempty"`
	Sort     string `json:"sort,omitempty"`
	Order    string `json:"order,omitempty"`
	PageSize int32  `json:"pageSize,omitempty"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type GetBalancesRequest struct{}

type GetBalancesResponse struct {
	Balances []*Balance `json:"balances"`
}

// RecordSettlementRequest records a payment from the caller to ToEmail.
type RecordSettlementRequest struct {
	ToEmail string `json:"toEmail"`
	Amount  Amount `json:"amount"`
	Note    string `json:"note,omitempty"`
}

type RecordSettlementResponse struct {
	Settlement *Settlement `json:"settlement"`
}

type ListSettlementsRequest struct {
	PageSize int32 `json:"pageSize,omitempty"`
}

type ListSettlementsResponse struct {
	Settlements []*Settlement `json:"settlements"`
}
