package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/splitwose/internal/models"
	"github.com/mmynk/splitwose/internal/storage"
)

// CreateExpense persists a new expense and its participants in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	// Generate ID if not set
	if expense.ID == "" {
		expense.ID = storage.NewID()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	if expense.Date == 0 {
		expense.Date = expense.CreatedAt
	}
	if expense.Category == "" {
		expense.Category = models.DefaultCategory
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, amount, description, category, date, payer_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.Amount, expense.Description, expense.Category,
		expense.Date, expense.PayerID, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for _, userID := range expense.Participants {
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO expense_participants (expense_id, user_id) VALUES (?, ?)",
			expense.ID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListExpensesInvolving retrieves expenses the user paid for or shares.
func (s *SQLiteStore) ListExpensesInvolving(ctx context.Context, userID string, filter storage.ExpenseFilter) ([]*models.Expense, error) {
	where := `(e.payer_id = ? OR EXISTS (
		SELECT 1 FROM expense_participants p WHERE p.expense_id = e.id AND p.user_id = ?))`
	args := []any{userID, userID}
	if filter.Category != "" {
		where += " AND e.category = ?"
		args = append(args, filter.Category)
	}

	query := `SELECT e.id, e.amount, e.description, e.category, e.date, e.payer_id, e.created_at
		FROM expenses e WHERE ` + where + ` ORDER BY ` + filter.OrderBy("e")
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	var ids []string
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		expense := &models.Expense{}
		if err := rows.Scan(&expense.ID, &expense.Amount, &expense.Description, &expense.Category,
			&expense.Date, &expense.PayerID, &expense.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
		ids = append(ids, expense.ID)
		byID[expense.ID] = expense
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	if len(expenses) == 0 {
		return expenses, nil
	}

	// Load participants for the returned page only.
	participantRows, err := s.db.QueryContext(ctx,
		`SELECT p.expense_id, p.user_id FROM expense_participants p
		 WHERE p.expense_id IN (`+placeholders(len(ids))+`)
		 ORDER BY p.expense_id, p.user_id`,
		toArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer participantRows.Close()

	for participantRows.Next() {
		var expenseID, participant string
		if err := participantRows.Scan(&expenseID, &participant); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if expense, ok := byID[expenseID]; ok {
			expense.Participants = append(expense.Participants, participant)
		}
	}
	if err := participantRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return expenses, nil
}
