package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mmynk/splitwose/pkg/api"
)

type stubExpenses struct {
	err error
}

func (s *stubExpenses) CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("not used"))
}

func (s *stubExpenses) ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("not used"))
}

func (s *stubExpenses) GetBalances(context.Context, *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	if s.err != nil {
		return nil, s.err
	}
	return connect.NewResponse(&api.GetBalancesResponse{}), nil
}

func TestInterceptor(t *testing.T) {
	m := New()
	stub := &stubExpenses{}
	path, handler := api.NewExpenseServiceHandler(stub, connect.WithInterceptors(m.Interceptor()))
	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	defer server.Close()

	client := api.NewExpenseServiceClient(http.DefaultClient, server.URL)
	ctx := context.Background()
	procedure := api.ExpenseServiceGetBalancesProcedure

	for i := 0; i < 2; i++ {
		if _, err := client.GetBalances(ctx, connect.NewRequest(&api.GetBalancesRequest{})); err != nil {
			t.Fatalf("GetBalances failed: %v", err)
		}
	}
	stub.err = connect.NewError(connect.CodeInternal, errors.New("boom"))
	_, _ = client.GetBalances(ctx, connect.NewRequest(&api.GetBalancesRequest{}))

	if got := testutil.ToFloat64(m.rpcRequests.WithLabelValues(procedure, "ok")); got != 2 {
		t.Errorf("expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.rpcRequests.WithLabelValues(procedure, "internal")); got != 1 {
		t.Errorf("expected 1 internal error, got %v", got)
	}
	if got := testutil.CollectAndCount(m.rpcDuration); got != 1 {
		t.Errorf("expected 1 duration series, got %d", got)
	}
}

func TestLedgerCounters(t *testing.T) {
	m := New()

	m.ExpenseRecorded()
	m.SettlementRecorded()
	m.SettlementRecorded()
	m.SettlementRejected("self_payment")
	m.SettlementRejected("invalid_amount")
	m.SettlementRejected("self_payment")

	if got := testutil.ToFloat64(m.expensesRecorded); got != 1 {
		t.Errorf("expected 1 expense, got %v", got)
	}
	if got := testutil.ToFloat64(m.settlementsRecorded); got != 2 {
		t.Errorf("expected 2 settlements, got %v", got)
	}
	if got := testutil.ToFloat64(m.settlementRejections.WithLabelValues("self_payment")); got != 2 {
		t.Errorf("expected 2 self_payment rejections, got %v", got)
	}

	expected := `
# HELP splitwose_settlement_rejections_total Settlement requests rejected during validation, by reason.
# TYPE splitwose_settlement_rejections_total counter
splitwose_settlement_rejections_total{reason="invalid_amount"} 1
splitwose_settlement_rejections_total{reason="self_payment"} 2
`
	if err := testutil.CollectAndCompare(m.settlementRejections, strings.NewReader(expected)); err != nil {
		t.Error(err)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ExpenseRecorded()
	m.SettlementRecorded()
	m.SettlementRejected("self_payment")
	m.observeRPC("/x", nil, 0)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ExpenseRecorded()

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(body), "splitwose_expenses_recorded_total 1") {
		t.Errorf("metric missing from exposition:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("runtime collector missing from exposition")
	}
}
