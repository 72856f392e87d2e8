package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/splitwose/internal/models"
	"github.com/mmynk/splitwose/internal/storage"
)

// SettlementRequest is a payment the requester says they made.
type SettlementRequest struct {
	// RecipientEmail identifies who was paid; matched ignoring case.
	RecipientEmail string

	// Amount is the raw user input; it must parse to a finite number > 0.
	Amount string

	// Note is optional free text.
	Note string
}

// RecordSettlement validates and persists a payment from viewerID to the
// recipient. Checks run in order and the first failure is returned:
//
//  1. recipient email non-empty (ErrRecipientRequired); a blank but
//     non-empty value goes on to the lookup and fails there
//  2. amount is a finite number > 0 (ErrInvalidAmount)
//  3. recipient exists (ErrRecipientNotFound)
//  4. recipient is not the viewer (ErrSelfPayment)
//
// Nothing is persisted when a check fails. Duplicate requests create
// duplicate settlements.
func (l *Ledger) RecordSettlement(ctx context.Context, viewerID string, req SettlementRequest) (detail *models.SettlementDetail, err error) {
	ctx, span := l.startSpan(ctx, "ledger.RecordSettlement", viewerID)
	defer func() { endSpan(span, err) }()

	if req.RecipientEmail == "" {
		return nil, ErrRecipientRequired
	}

	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	recipient, err := l.store.GetUserByEmail(ctx, req.RecipientEmail)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRecipientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recipient: %w", err)
	}

	if recipient.ID == viewerID {
		return nil, ErrSelfPayment
	}

	settlement := &models.Settlement{
		FromUserID: viewerID,
		ToUserID:   recipient.ID,
		Amount:     amount,
		Note:       req.Note,
		Date:       l.now().Unix(),
	}
	if err := l.store.CreateSettlement(ctx, settlement); err != nil {
		return nil, fmt.Errorf("create settlement: %w", err)
	}

	// The record is already persisted, so a failed lookup only degrades the
	// payer's display data.
	from := models.UserSummary{ID: viewerID}
	if users, err := l.store.GetUsersByIDs(ctx, []string{viewerID}); err != nil {
		slog.WarnContext(ctx, "Failed to resolve settlement payer", "user_id", viewerID, "error", err)
	} else if u, ok := users[viewerID]; ok {
		from = u.Summary()
	}

	return &models.SettlementDetail{
		Settlement: *settlement,
		From:       from,
		To:         recipient.Summary(),
	}, nil
}

// ListSettlements returns settlements the viewer sent or received, newest
// first. pageSize <= 0 selects the maximum of storage.MaxListSize.
func (l *Ledger) ListSettlements(ctx context.Context, viewerID string, pageSize int) (details []*models.SettlementDetail, err error) {
	ctx, span := l.startSpan(ctx, "ledger.ListSettlements", viewerID)
	defer func() { endSpan(span, err) }()

	settlements, err := l.store.ListSettlementsInvolving(ctx, viewerID, clampPageSize(pageSize))
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}

	ids := make([]string, 0, 2*len(settlements))
	for _, s := range settlements {
		ids = append(ids, s.FromUserID, s.ToUserID)
	}
	people, err := l.summaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve settlement parties: %w", err)
	}

	details = make([]*models.SettlementDetail, len(settlements))
	for i, s := range settlements {
		details[i] = &models.SettlementDetail{
			Settlement: *s,
			From:       people[s.FromUserID],
			To:         people[s.ToUserID],
		}
	}
	return details, nil
}
