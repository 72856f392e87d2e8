package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwose/internal/ledger"
	"github.com/mmynk/splitwose/internal/metrics"
	"github.com/mmynk/splitwose/pkg/api"
)

// SettlementService implements api.SettlementServiceHandler.
type SettlementService struct {
	ledger  *ledger.Ledger
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewSettlementService creates a SettlementService. m may be nil.
func NewSettlementService(l *ledger.Ledger, m *metrics.Metrics, logger *slog.Logger) *SettlementService {
	return &SettlementService{ledger: l, metrics: m, logger: logger}
}

// RecordSettlement records a payment from the caller to another user.
func (s *SettlementService) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	detail, err := s.ledger.RecordSettlement(ctx, userID, ledger.SettlementRequest{
		RecipientEmail: req.Msg.ToEmail,
		Amount:         string(req.Msg.Amount),
		Note:           req.Msg.Note,
	})
	if err != nil {
		if reason := ledger.RejectionReason(err); reason != "" {
			s.metrics.SettlementRejected(reason)
			s.logger.Warn("RecordSettlement rejected", "user_id", userID, "reason", reason)
		} else {
			s.logger.Error("RecordSettlement failed", "user_id", userID, "error", err)
		}
		return nil, ledgerError(err)
	}

	s.metrics.SettlementRecorded()
	s.logger.Info("Settlement recorded",
		"user_id", userID,
		"settlement_id", detail.ID,
		"to_user_id", detail.ToUserID,
		"amount", detail.Amount,
	)
	return connect.NewResponse(&api.RecordSettlementResponse{Settlement: toSettlement(detail)}), nil
}

// ListSettlements returns settlements the caller sent or received, newest first.
func (s *SettlementService) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	details, err := s.ledger.ListSettlements(ctx, userID, int(req.Msg.PageSize))
	if err != nil {
		s.logger.Error("ListSettlements failed", "user_id", userID, "error", err)
		return nil, ledgerError(err)
	}

	settlements := make([]*api.Settlement, len(details))
	for i, d := range details {
		settlements[i] = toSettlement(d)
	}
	return connect.NewResponse(&api.ListSettlementsResponse{Settlements: settlements}), nil
}
