// Package ledger implements the balance and settlement operations of
// Splitwose on top of a storage backend.
//
// Balances are derived from expenses only. Settlements live in their own
// ledger and do not reduce the balances reported by ComputeBalances.
package ledger

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmynk/splitwose/internal/models"
	"github.com/mmynk/splitwose/internal/storage"
)

const tracerName = "github.com/mmynk/splitwose/internal/ledger"

// Store is the set of storage operations the ledger needs.
type Store interface {
	storage.ExpenseStore
	storage.SettlementStore

	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	GetUsersByEmails(ctx context.Context, emails []string) ([]*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// Ledger computes balances and records expenses and settlements.
// It keeps no state between calls and is safe for concurrent use.
type Ledger struct {
	store  Store
	now    func() time.Time
	tracer trace.Tracer
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for record dates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Ledger) { l.tracer = tp.Tracer(tracerName) }
}

// New creates a Ledger backed by store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		now:    time.Now,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// clampPageSize applies the default and the upper bound for list sizes.
func clampPageSize(size int) int {
	if size <= 0 || size > storage.MaxListSize {
		return storage.MaxListSize
	}
	return size
}

// summaries resolves display data for ids. IDs without a user record get an
// ID-only summary.
func (l *Ledger) summaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	users, err := l.store.GetUsersByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			out[id] = u.Summary()
		} else {
			out[id] = models.UserSummary{ID: id}
		}
	}
	return out, nil
}

func (l *Ledger) startSpan(ctx context.Context, name, userID string) (context.Context, trace.Span) {
	return l.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("user.id", userID)))
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if IsRejection(err) {
			span.SetAttributes(attribute.String("rejection.reason", RejectionReason(err)))
		} else {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

// dedupe returns ids without repeats, keeping first occurrences in order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func sortBalances(balances []models.Balance) {
	sort.Slice(balances, func(i, j int) bool {
		a, b := balances[i].Counterparty, balances[j].Counterparty
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

func logDroppedBalance(ctx context.Context, viewerID, counterpartyID string, amount float64) {
	slog.WarnContext(ctx, "Dropping balance for unknown user",
		"user_id", viewerID,
		"counterparty_id", counterpartyID,
		"amount", amount,
	)
}
