package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/mmynk/splitwose/internal/models"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *memStore
	l     *Ledger
	alice *models.User
	bob   *models.User
	carol *models.User
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := newMemStore()
	f := &fixture{
		store: store,
		alice: store.addUser("Alice", "alice@example.com"),
		bob:   store.addUser("Bob", "Bob@Example.com"),
		carol: store.addUser("Carol", "carol@example.com"),
	}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	f.l = New(store, opts...)
	return f
}

func balanceMap(balances []models.Balance) map[string]float64 {
	out := make(map[string]float64, len(balances))
	for _, b := range balances {
		out[b.Counterparty.ID] = b.Amount
	}
	return out
}

func TestComputeBalances_ThreeWaySplit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.l.RecordExpense(ctx, f.alice.ID, ExpenseRequest{
		Amount:    "100",
		SplitWith: []string{"bob@example.com", "CAROL@example.com"},
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	got, err := f.l.ComputeBalances(ctx, f.alice.ID)
	if err != nil {
		t.Fatalf("ComputeBalances failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(got))
	}
	// Sorted by name.
	if got[0].Counterparty.Name != "Bob" || got[1].Counterparty.Name != "Carol" {
		t.Errorf("unexpected order: %q, %q", got[0].Counterparty.Name, got[1].Counterparty.Name)
	}
	for _, b := range got {
		if b.Amount != 33.33 {
			t.Errorf("%s: expected 33.33, got %v", b.Counterparty.Name, b.Amount)
		}
	}
	if got[0].Counterparty.Email != "Bob@Example.com" {
		t.Errorf("expected stored email, got %q", got[0].Counterparty.Email)
	}

	bobView, err := f.l.ComputeBalances(ctx, f.bob.ID)
	if err != nil {
		t.Fatalf("ComputeBalances failed: %v", err)
	}
	if len(bobView) != 1 || bobView[0].Counterparty.ID != f.alice.ID || bobView[0].Amount != -33.33 {
		t.Errorf("unexpected balances for Bob: %+v", bobView)
	}
}

func TestComputeBalances_SettlementsDoNotChangeBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.l.RecordExpense(ctx, f.alice.ID, ExpenseRequest{
		Amount:    "100",
		SplitWith: []string{"bob@example.com", "carol@example.com"},
	}); err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	before, err := f.l.ComputeBalances(ctx, f.bob.ID)
	if err != nil {
		t.Fatalf("ComputeBalances failed: %v", err)
	}
	if _, err := f.l.RecordSettlement(ctx, f.bob.ID, SettlementRequest{
		RecipientEmail: "alice@example.com",
		Amount:         "33.33",
	}); err != nil {
		t.Fatalf("RecordSettlement failed: %v", err)
	}
	after, err := f.l.ComputeBalances(ctx, f.bob.ID)
	if err != nil {
		t.Fatalf("ComputeBalances failed: %v", err)
	}

	if len(before) != 1 || len(after) != 1 || before[0].Amount != after[0].Amount {
		t.Errorf("balances changed after settlement: before %+v, after %+v", before, after)
	}
}

func TestComputeBalances_Empty(t *testing.T) {
	f := newFixture(t)

	got, err := f.l.ComputeBalances(context.Background(), f.alice.ID)
	if err != nil {
		t.Fatalf("ComputeBalances failed: %v", err)
	}
	if got == nil {
		t.Error("expected empty non-nil slice")
	}
	if len(got) != 0 {
		t.Errorf("expected no balances, got %+v", got)
	}
}

func TestComputeBalances_NettedToZeroIsOmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, payer := range []*models.User{f.alice, f.bob} {
		if _, err := f.l.RecordExpense(ctx, payer.ID, ExpenseRequest{
			Amount:    "50",
			SplitWith: []string{"alice@example.com", "bob@example.com"},
		}); err != nil {
			t.Fatalf("RecordExpense failed: %v", err)
		}
	}

	got, err := f.l.ComputeBalances(ctx, f.alice.ID)
	if err != nil {
		t.Fatalf("ComputeBalances failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected zero balance to be omitted, got %+v", got)
	}
}

func TestComputeBalances_UnknownCounterpartyDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.expenses = append(f.store.expenses, &models.Expense{
		ID:           "e1",
		Amount:       90,
		PayerID:      f.alice.ID,
		Participants: []string{f.alice.ID, f.bob.ID, "deleted-user"},
	})

	got, err := f.l.ComputeBalances(ctx, f.alice.ID)
	if err != nil {
		t.Fatalf("ComputeBalances failed: %v", err)
	}
	m := balanceMap(got)
	if len(m) != 1 || m[f.bob.ID] != 30 {
		t.Errorf("expected only Bob at 30, got %+v", got)
	}
}

func TestComputeBalances_StoreFailure(t *testing.T) {
	f := newFixture(t)
	dbErr := errors.New("database is locked")
	f.store.failWith = dbErr

	_, err := f.l.ComputeBalances(context.Background(), f.alice.ID)
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if IsRejection(err) {
		t.Error("store failure must not be reported as a rejection")
	}
}

func TestComputeBalances_UserLookupFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.l.RecordExpense(ctx, f.alice.ID, ExpenseRequest{
		Amount:    "10",
		SplitWith: []string{"bob@example.com"},
	}); err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	lookupErr := errors.New("connection reset")
	f.store.failUsers = lookupErr
	if _, err := f.l.ComputeBalances(ctx, f.alice.ID); !errors.Is(err, lookupErr) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestRecordSettlement_Success(t *testing.T) {
	f := newFixture(t)

	got, err := f.l.RecordSettlement(context.Background(), f.alice.ID, SettlementRequest{
		RecipientEmail: "  BOB@example.COM ",
		Amount:         " 25.50 ",
		Note:           "pizza",
	})
	if err != nil {
		t.Fatalf("RecordSettlement failed: %v", err)
	}

	if got.ID == "" {
		t.Error("expected settlement ID to be set")
	}
	if got.FromUserID != f.alice.ID || got.ToUserID != f.bob.ID {
		t.Errorf("unexpected parties: from %s to %s", got.FromUserID, got.ToUserID)
	}
	if got.Amount != 25.5 {
		t.Errorf("expected amount 25.5, got %v", got.Amount)
	}
	if got.Note != "pizza" {
		t.Errorf("expected note 'pizza', got %q", got.Note)
	}
	if got.Date != fixedNow.Unix() {
		t.Errorf("expected date %d, got %d", fixedNow.Unix(), got.Date)
	}
	if got.From.Name != "Alice" || got.From.Email != "alice@example.com" {
		t.Errorf("unexpected payer summary: %+v", got.From)
	}
	if got.To.Name != "Bob" || got.To.Email != "Bob@Example.com" {
		t.Errorf("unexpected recipient summary: %+v", got.To)
	}
	if len(f.store.settlements) != 1 {
		t.Errorf("expected 1 stored settlement, got %d", len(f.store.settlements))
	}
}

func TestRecordSettlement_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		amount  string
		wantErr error
	}{
		{"missing recipient", "", "10", ErrRecipientRequired},
		{"blank recipient is looked up", "   ", "10", ErrRecipientNotFound},
		{"blank recipient checked after amount", "   ", "abc", ErrInvalidAmount},
		{"missing recipient checked before amount", "", "abc", ErrRecipientRequired},
		{"non-numeric amount", "bob@example.com", "abc", ErrInvalidAmount},
		{"empty amount", "bob@example.com", "", ErrInvalidAmount},
		{"zero amount", "bob@example.com", "0", ErrInvalidAmount},
		{"negative amount", "bob@example.com", "-5", ErrInvalidAmount},
		{"NaN amount", "bob@example.com", "NaN", ErrInvalidAmount},
		{"infinite amount", "bob@example.com", "Infinity", ErrInvalidAmount},
		{"overflowing amount", "bob@example.com", "1e400", ErrInvalidAmount},
		{"amount checked before lookup", "nobody@example.com", "abc", ErrInvalidAmount},
		{"unknown recipient", "nobody@example.com", "10", ErrRecipientNotFound},
		{"self payment", "alice@example.com", "10", ErrSelfPayment},
		{"self payment ignoring case", " ALICE@Example.com", "10", ErrSelfPayment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			got, err := f.l.RecordSettlement(context.Background(), f.alice.ID, SettlementRequest{
				RecipientEmail: tt.email,
				Amount:         tt.amount,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !IsRejection(err) {
				t.Errorf("expected %v to be a rejection", err)
			}
			if got != nil {
				t.Errorf("expected no result, got %+v", got)
			}
			if len(f.store.settlements) != 0 {
				t.Errorf("rejected request persisted %d settlements", len(f.store.settlements))
			}
		})
	}
}

func TestRecordSettlement_StoreFailure(t *testing.T) {
	f := newFixture(t)
	dbErr := errors.New("disk full")
	f.store.failWith = dbErr

	_, err := f.l.RecordSettlement(context.Background(), f.alice.ID, SettlementRequest{
		RecipientEmail: "bob@example.com",
		Amount:         "10",
	})
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if IsRejection(err) {
		t.Error("store failure must not be reported as a rejection")
	}
}

func TestRecordSettlement_DuplicatesAreKept(t *testing.T) {
	f := newFixture(t)
	req := SettlementRequest{RecipientEmail: "bob@example.com", Amount: "5"}

	for i := 0; i < 2; i++ {
		if _, err := f.l.RecordSettlement(context.Background(), f.alice.ID, req); err != nil {
			t.Fatalf("RecordSettlement failed: %v", err)
		}
	}
	if len(f.store.settlements) != 2 {
		t.Errorf("expected 2 settlements, got %d", len(f.store.settlements))
	}
}

func TestListSettlements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mustSettle := func(from *models.User, to, amount string) {
		t.Helper()
		if _, err := f.l.RecordSettlement(ctx, from.ID, SettlementRequest{RecipientEmail: to, Amount: amount}); err != nil {
			t.Fatalf("RecordSettlement failed: %v", err)
		}
	}
	mustSettle(f.alice, "bob@example.com", "10")
	mustSettle(f.bob, "alice@example.com", "20")
	mustSettle(f.bob, "carol@example.com", "30")

	got, err := f.l.ListSettlements(ctx, f.alice.ID, 0)
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(got))
	}
	if got[0].Amount != 20 || got[0].From.Name != "Bob" || got[0].To.Name != "Alice" {
		t.Errorf("unexpected first settlement: %+v", got[0])
	}
	if got[1].Amount != 10 || got[1].From.Name != "Alice" || got[1].To.Name != "Bob" {
		t.Errorf("unexpected second settlement: %+v", got[1])
	}

	limited, err := f.l.ListSettlements(ctx, f.bob.ID, 1)
	if err != nil {
		t.Fatalf("ListSettlements failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected page size 1 to be honored, got %d", len(limited))
	}
}

func TestRecordExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.l.RecordExpense(ctx, f.alice.ID, ExpenseRequest{
		Amount:      "60",
		Description: " Groceries ",
		SplitWith:   []string{"bob@example.com", "unknown@example.com", "alice@example.com"},
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}

	if got.Category != models.DefaultCategory {
		t.Errorf("expected default category, got %q", got.Category)
	}
	if got.Date != fixedNow.Unix() {
		t.Errorf("expected date to default to now, got %d", got.Date)
	}
	if got.Description != "Groceries" {
		t.Errorf("expected trimmed description, got %q", got.Description)
	}
	if len(got.Expense.Participants) != 2 {
		t.Fatalf("expected payer and Bob only, got %v", got.Expense.Participants)
	}
	if got.Payer.Name != "Alice" {
		t.Errorf("expected payer Alice, got %+v", got.Payer)
	}
	names := map[string]bool{}
	for _, p := range got.Participants {
		names[p.Name] = true
	}
	if !names["Alice"] || !names["Bob"] {
		t.Errorf("unexpected participants: %+v", got.Participants)
	}
}

func TestRecordExpense_SplitWithAll(t *testing.T) {
	f := newFixture(t)

	got, err := f.l.RecordExpense(context.Background(), f.bob.ID, ExpenseRequest{
		Amount:       "90",
		Category:     "Rent",
		Date:         1700000000,
		SplitWithAll: true,
		SplitWith:    []string{"alice@example.com"},
	})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}
	if len(got.Expense.Participants) != 3 {
		t.Errorf("expected all 3 users, got %v", got.Expense.Participants)
	}
	if got.Category != "Rent" || got.Date != 1700000000 {
		t.Errorf("expected explicit category and date, got %q %d", got.Category, got.Date)
	}
}

func TestRecordExpense_PayerOnly(t *testing.T) {
	f := newFixture(t)

	got, err := f.l.RecordExpense(context.Background(), f.alice.ID, ExpenseRequest{Amount: "12"})
	if err != nil {
		t.Fatalf("RecordExpense failed: %v", err)
	}
	if len(got.Expense.Participants) != 1 || got.Expense.Participants[0] != f.alice.ID {
		t.Errorf("expected payer as sole participant, got %v", got.Expense.Participants)
	}
}

func TestRecordExpense_InvalidAmount(t *testing.T) {
	f := newFixture(t)

	for _, amount := range []string{"", "0", "-1", "ten", "NaN"} {
		_, err := f.l.RecordExpense(context.Background(), f.alice.ID, ExpenseRequest{Amount: amount})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("amount %q: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if len(f.store.expenses) != 0 {
		t.Errorf("invalid expenses were persisted: %d", len(f.store.expenses))
	}
}

func TestListExpenses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mustRecord := func(payer *models.User, req ExpenseRequest) {
		t.Helper()
		if _, err := f.l.RecordExpense(ctx, payer.ID, req); err != nil {
			t.Fatalf("RecordExpense failed: %v", err)
		}
	}
	mustRecord(f.alice, ExpenseRequest{Amount: "30", Category: "Food", Date: 100, SplitWith: []string{"bob@example.com"}})
	mustRecord(f.bob, ExpenseRequest{Amount: "10", Category: "Food", Date: 300, SplitWith: []string{"alice@example.com"}})
	mustRecord(f.alice, ExpenseRequest{Amount: "20", Category: "Travel", Date: 200})
	mustRecord(f.carol, ExpenseRequest{Amount: "99", Date: 400})

	all, err := f.l.ListExpenses(ctx, f.alice.ID, ExpenseQuery{})
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(all))
	}
	if all[0].Date != 300 || all[2].Date != 100 {
		t.Errorf("expected newest first, got dates %d..%d", all[0].Date, all[2].Date)
	}

	food, err := f.l.ListExpenses(ctx, f.alice.ID, ExpenseQuery{Category: "Food", SortBy: "amount", Order: "asc"})
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(food) != 2 || food[0].Amount != 10 || food[1].Amount != 30 {
		t.Errorf("unexpected food expenses: %+v", food)
	}
	if food[0].Payer.Name != "Bob" {
		t.Errorf("expected payer Bob, got %+v", food[0].Payer)
	}

	page, err := f.l.ListExpenses(ctx, f.alice.ID, ExpenseQuery{PageSize: 1})
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("expected 1 expense, got %d", len(page))
	}
}

func TestClampPageSize(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 200},
		{-3, 200},
		{1, 1},
		{200, 200},
		{201, 200},
	}
	for _, tt := range tests {
		if got := clampPageSize(tt.in); got != tt.want {
			t.Errorf("clampPageSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	f := newFixture(t, WithTracerProvider(tp))
	ctx := context.Background()

	if _, err := f.l.RecordSettlement(ctx, f.alice.ID, SettlementRequest{RecipientEmail: "alice@example.com", Amount: "5"}); err == nil {
		t.Fatal("expected self payment to be rejected")
	}
	f.store.failWith = errors.New("boom")
	if _, err := f.l.ComputeBalances(ctx, f.alice.ID); err == nil {
		t.Fatal("expected store failure")
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	rejected := spans[0]
	if rejected.Name() != "ledger.RecordSettlement" {
		t.Errorf("unexpected span name %q", rejected.Name())
	}
	if rejected.Status().Code == codes.Error {
		t.Error("rejection should not mark the span as failed")
	}
	if !hasAttribute(rejected.Attributes(), attribute.String("rejection.reason", "self_payment")) {
		t.Errorf("missing rejection reason in %v", rejected.Attributes())
	}
	if !hasAttribute(rejected.Attributes(), attribute.String("user.id", f.alice.ID)) {
		t.Errorf("missing user id in %v", rejected.Attributes())
	}

	failed := spans[1]
	if failed.Name() != "ledger.ComputeBalances" {
		t.Errorf("unexpected span name %q", failed.Name())
	}
	if failed.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", failed.Status().Code)
	}
}

func hasAttribute(attrs []attribute.KeyValue, want attribute.KeyValue) bool {
	for _, kv := range attrs {
		if kv.Key == want.Key && kv.Value.Emit() == want.Value.Emit() {
			return true
		}
	}
	return false
}
