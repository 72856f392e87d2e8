package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/splitwose/internal/models"
	"github.com/mmynk/splitwose/internal/storage"
)

// ExpenseRequest is a shared cost paid by the requester.
type ExpenseRequest struct {
	// Amount is the raw user input; it must parse to a finite number > 0.
	Amount string

	Description string

	// Category defaults to models.DefaultCategory.
	Category string

	// Date is a Unix timestamp; zero means now.
	Date int64

	// SplitWithAll splits the cost among every registered user.
	SplitWithAll bool

	// SplitWith lists participant emails, matched ignoring case.
	// Unknown emails are skipped. Ignored when SplitWithAll is set.
	SplitWith []string
}

// RecordExpense persists an expense paid by payerID. The payer is always
// added to the participants, so an expense is never stored without anyone
// to split it.
func (l *Ledger) RecordExpense(ctx context.Context, payerID string, req ExpenseRequest) (detail *models.ExpenseDetail, err error) {
	ctx, span := l.startSpan(ctx, "ledger.RecordExpense", payerID)
	defer func() { endSpan(span, err) }()

	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	participants, err := l.resolveParticipants(ctx, req)
	if err != nil {
		return nil, err
	}
	participants = dedupe(append(participants, payerID))

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = models.DefaultCategory
	}
	date := req.Date
	if date == 0 {
		date = l.now().Unix()
	}

	expense := &models.Expense{
		Amount:       amount,
		Description:  strings.TrimSpace(req.Description),
		Category:     category,
		Date:         date,
		PayerID:      payerID,
		Participants: participants,
	}
	if err := l.store.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	details, err := l.expenseDetails(ctx, []*models.Expense{expense})
	if err != nil {
		// Persisted already; fall back to ID-only display data.
		slog.WarnContext(ctx, "Failed to resolve expense participants", "expense_id", expense.ID, "error", err)
		return bareExpenseDetail(expense), nil
	}
	return details[0], nil
}

func (l *Ledger) resolveParticipants(ctx context.Context, req ExpenseRequest) ([]string, error) {
	var (
		users []*models.User
		err   error
	)
	switch {
	case req.SplitWithAll:
		users, err = l.store.ListUsers(ctx)
	case len(req.SplitWith) > 0:
		emails := make([]string, 0, len(req.SplitWith))
		for _, email := range req.SplitWith {
			if email = strings.TrimSpace(email); email != "" {
				emails = append(emails, email)
			}
		}
		users, err = l.store.GetUsersByEmails(ctx, emails)
		if err == nil && len(users) < len(emails) {
			slog.DebugContext(ctx, "Skipping unknown participant emails",
				"requested", len(emails),
				"found", len(users),
			)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("resolve participants: %w", err)
	}

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids, nil
}

// ExpenseQuery narrows ListExpenses.
type ExpenseQuery struct {
	Category string

	// SortBy is "amount" to sort by amount; anything else sorts by date.
	SortBy string

	// Order is "asc" for ascending; anything else is descending.
	Order string

	// PageSize <= 0 selects the maximum of storage.MaxListSize.
	PageSize int
}

// ListExpenses returns the expenses the viewer paid for or shares.
func (l *Ledger) ListExpenses(ctx context.Context, viewerID string, query ExpenseQuery) (details []*models.ExpenseDetail, err error) {
	ctx, span := l.startSpan(ctx, "ledger.ListExpenses", viewerID)
	defer func() { endSpan(span, err) }()

	filter := storage.ExpenseFilter{
		Category:  query.Category,
		SortBy:    storage.SortByDate,
		Ascending: strings.EqualFold(query.Order, "asc"),
		Limit:     clampPageSize(query.PageSize),
	}
	if strings.EqualFold(query.SortBy, storage.SortByAmount) {
		filter.SortBy = storage.SortByAmount
	}

	expenses, err := l.store.ListExpensesInvolving(ctx, viewerID, filter)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	details, err = l.expenseDetails(ctx, expenses)
	if err != nil {
		return nil, fmt.Errorf("resolve expense participants: %w", err)
	}
	return details, nil
}

func (l *Ledger) expenseDetails(ctx context.Context, expenses []*models.Expense) ([]*models.ExpenseDetail, error) {
	var ids []string
	for _, e := range expenses {
		ids = append(ids, e.PayerID)
		ids = append(ids, e.Participants...)
	}
	people, err := l.summaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := make([]*models.ExpenseDetail, len(expenses))
	for i, e := range expenses {
		detail := &models.ExpenseDetail{
			Expense:      *e,
			Payer:        people[e.PayerID],
			Participants: make([]models.UserSummary, len(e.Participants)),
		}
		for j, p := range e.Participants {
			detail.Participants[j] = people[p]
		}
		details[i] = detail
	}
	return details, nil
}

func bareExpenseDetail(e *models.Expense) *models.ExpenseDetail {
	detail := &models.ExpenseDetail{
		Expense:      *e,
		Payer:        models.UserSummary{ID: e.PayerID},
		Participants: make([]models.UserSummary, len(e.Participants)),
	}
	for i, p := range e.Participants {
		detail.Participants[i] = models.UserSummary{ID: p}
	}
	return detail
}
