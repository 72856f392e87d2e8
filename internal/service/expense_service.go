package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwose/internal/ledger"
	"github.com/mmynk/splitwose/internal/metrics"
	"github.com/mmynk/splitwose/pkg/api"
)

// ExpenseService implements api.ExpenseServiceHandler.
type ExpenseService struct {
	ledger  *ledger.Ledger
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewExpenseService creates an ExpenseService. m may be nil.
func NewExpenseService(l *ledger.Ledger, m *metrics.Metrics, logger *slog.Logger) *ExpenseService {
	return &ExpenseService{ledger: l, metrics: m, logger: logger}
}

// CreateExpense records an expense paid by the caller.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	detail, err := s.ledger.RecordExpense(ctx, userID, ledger.ExpenseRequest{
		Amount:       string(req.Msg.Amount),
		Description:  req.Msg.Description,
		Category:     req.Msg.Category,
		Date:         req.Msg.Date,
		SplitWithAll: req.Msg.SplitWithAll,
		SplitWith:    req.Msg.SplitWith,
	})
	if err != nil {
		if ledger.IsRejection(err) {
			s.logger.Warn("CreateExpense rejected", "user_id", userID, "error", err)
		} else {
			s.logger.Error("CreateExpense failed", "user_id", userID, "error", err)
		}
		return nil, ledgerError(err)
	}

	s.metrics.ExpenseRecorded()
	s.logger.Info("Expense recorded",
		"user_id", userID,
		"expense_id", detail.ID,
		"amount", detail.Amount,
		"participants", len(detail.Participants),
	)
	return connect.NewResponse(&api.CreateExpenseResponse{Expense: toExpense(detail)}), nil
}

// ListExpenses returns the caller's expenses.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	details, err := s.ledger.ListExpenses(ctx, userID, ledger.ExpenseQuery{
		Category: req.Msg.Category,
		SortBy:   req.Msg.Sort,
		Order:    req.Msg.Order,
		PageSize: int(req.Msg.PageSize),
	})
	if err != nil {
		s.logger.Error("ListExpenses failed", "user_id", userID, "error", err)
		return nil, ledgerError(err)
	}

	expenses := make([]*api.Expense, len(details))
	for i, d := range details {
		expenses[i] = toExpense(d)
	}
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: expenses}), nil
}

// GetBalances returns the caller's net balance with each counterparty.
func (s *ExpenseService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	balances, err := s.ledger.ComputeBalances(ctx, userID)
	if err != nil {
		s.logger.Error("GetBalances failed", "user_id", userID, "error", err)
		return nil, ledgerError(err)
	}

	out := make([]*api.Balance, len(balances))
	for i, b := range balances {
		out[i] = &api.Balance{
			UserID:  b.Counterparty.ID,
			Name:    b.Counterparty.Name,
			Email:   b.Counterparty.Email,
			Balance: b.Amount,
		}
	}
	s.logger.Debug("Balances computed", "user_id", userID, "counterparties", len(out))
	return connect.NewResponse(&api.GetBalancesResponse{Balances: out}), nil
}
