package ledger

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mmynk/splitwose/internal/calculator"
	"github.com/mmynk/splitwose/internal/models"
	"github.com/mmynk/splitwose/internal/storage"
)

// ComputeBalances returns the viewer's net balance with every counterparty
// they share an expense with. Balances within calculator.Epsilon of zero are
// omitted; the rest are rounded to cents. An empty result is not an error.
//
// Settlements are not applied.
func (l *Ledger) ComputeBalances(ctx context.Context, viewerID string) (balances []models.Balance, err error) {
	ctx, span := l.startSpan(ctx, "ledger.ComputeBalances", viewerID)
	defer func() { endSpan(span, err) }()

	expenses, err := l.store.ListExpensesInvolving(ctx, viewerID, storage.ExpenseFilter{})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	inputs := make([]calculator.ExpenseForBalance, 0, len(expenses))
	for _, e := range expenses {
		if !e.Involves(viewerID) {
			continue
		}
		inputs = append(inputs, calculator.ExpenseForBalance{
			Amount:       e.Amount,
			PayerID:      e.PayerID,
			Participants: e.Participants,
		})
	}

	raw := calculator.CalculateBalances(viewerID, inputs)
	span.SetAttributes(
		attribute.Int("expenses.count", len(expenses)),
		attribute.Int("counterparties.count", len(raw)),
	)

	balances = make([]models.Balance, 0, len(raw))
	if len(raw) == 0 {
		return balances, nil
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	users, err := l.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve counterparties: %w", err)
	}

	for id, amount := range raw {
		user, ok := users[id]
		if !ok {
			logDroppedBalance(ctx, viewerID, id, amount)
			continue
		}
		balances = append(balances, models.Balance{
			Counterparty: user.Summary(),
			Amount:       calculator.RoundCents(amount),
		})
	}

	sortBalances(balances)
	return balances, nil
}
