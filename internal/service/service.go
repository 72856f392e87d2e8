// Package service implements the Connect services on top of the ledger and
// the authenticator.
package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwose/internal/auth"
	"github.com/mmynk/splitwose/internal/ledger"
	"github.com/mmynk/splitwose/internal/middleware"
	"github.com/mmynk/splitwose/internal/models"
	"github.com/mmynk/splitwose/pkg/api"
)

// requireUser returns the authenticated user ID from the context.
func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// ledgerError maps a ledger failure to a Connect error. Rejections keep
// their message so the caller sees exactly what to fix.
func ledgerError(err error) *connect.Error {
	switch {
	case errors.Is(err, ledger.ErrRecipientNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case ledger.IsRejection(err):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func toPerson(s models.UserSummary) *api.Person {
	return &api.Person{ID: s.ID, Name: s.Name, Email: s.Email}
}

func toUser(u *models.User) *api.User {
	return &api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func toExpense(d *models.ExpenseDetail) *api.Expense {
	participants := make([]*api.Person, len(d.Participants))
	for i, p := range d.Participants {
		participants[i] = toPerson(p)
	}
	return &api.Expense{
		ID:           d.ID,
		Amount:       d.Amount,
		Description:  d.Description,
		Category:     d.Category,
		Date:         d.Date,
		Payer:        toPerson(d.Payer),
		Participants: participants,
		CreatedAt:    d.CreatedAt,
	}
}

func toSettlement(d *models.SettlementDetail) *api.Settlement {
	return &api.Settlement{
		ID:        d.ID,
		From:      toPerson(d.From),
		To:        toPerson(d.To),
		Amount:    d.Amount,
		Note:      d.Note,
		Date:      d.Date,
		CreatedAt: d.CreatedAt,
	}
}
