// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mmynk/splitwose/internal/models"
)

var (
	// ErrNotFound is wrapped by every lookup that matches no record.
	ErrNotFound = errors.New("not found")

	// ErrConflict is wrapped when a create hits a uniqueness constraint.
	ErrConflict = errors.New("already exists")
)

// NewID returns a UUIDv7 string. IDs minted by one process sort in creation
// order, which the id tie-break of every list query relies on.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// MaxListSize bounds every list query.
const MaxListSize = 200

// Sort keys accepted by ExpenseFilter.SortBy.
const (
	SortByDate   = "date"
	SortByAmount = "amount"
)

// ExpenseFilter narrows and orders ListExpensesInvolving results.
type ExpenseFilter struct {
	// Category keeps only expenses with this exact category when non-empty.
	Category string

	// SortBy is SortByDate (default) or SortByAmount.
	SortBy string

	// Ascending flips the default newest/largest-first order.
	Ascending bool

	// Limit caps the number of results; zero means no cap.
	Limit int
}

// UserStore defines user persistence operations.
type UserStore interface {
	// CreateUser persists a new user. Emails are unique case-insensitively;
	// a duplicate wraps ErrConflict.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by ID. Wraps ErrNotFound when missing.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail retrieves a user by email, ignoring letter case on both
	// the stored and the supplied value. Wraps ErrNotFound when missing.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUsersByIDs returns a map of user ID to user. Unknown IDs are omitted.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// GetUsersByEmails returns the users matching any of the emails,
	// case-insensitively. Unknown emails are omitted.
	GetUsersByEmails(ctx context.Context, emails []string) ([]*models.User, error)

	// ListUsers returns every registered user.
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// ExpenseStore defines expense persistence operations.
type ExpenseStore interface {
	// CreateExpense persists a new expense and its participants.
	// The expense ID and CreatedAt are populated by the store when unset.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// ListExpensesInvolving returns every expense where the user is the payer
	// or a participant, filtered and ordered by filter.
	ListExpensesInvolving(ctx context.Context, userID string, filter ExpenseFilter) ([]*models.Expense, error)
}

// SettlementStore defines settlement persistence operations.
type SettlementStore interface {
	// CreateSettlement persists a new settlement.
	// The settlement ID and CreatedAt are populated by the store when unset.
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error

	// ListSettlementsInvolving returns settlements the user sent or received,
	// newest first, at most limit of them.
	ListSettlementsInvolving(ctx context.Context, userID string, limit int) ([]*models.Settlement, error)
}

// Store bundles every persistence operation.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the ledger or service layers.
type Store interface {
	UserStore
	ExpenseStore
	SettlementStore

	// Close releases any resources held by the store.
	Close() error
}

// OrderBy returns the ORDER BY terms for an expenses table aliased as alias.
// Ties on the sort key fall back to recording time then ID so paging is stable.
func (f ExpenseFilter) OrderBy(alias string) string {
	column := "date"
	if f.SortBy == SortByAmount {
		column = "amount"
	}
	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}
	return alias + "." + column + " " + dir + ", " +
		alias + ".created_at " + dir + ", " +
		alias + ".id " + dir
}
