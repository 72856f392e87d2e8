// Package api defines the Splitwose RPC surface: wire messages, procedure
// names, handler constructors and typed clients for the Connect protocol.
//
// Messages are plain Go structs encoded as JSON. Handlers and clients built
// here install JSONCodec, so any Connect client speaking
// application/json can call the services.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	// AuthServiceName is the fully-qualified name of the AuthService service.
	AuthServiceName = "splitwose.v1.AuthService"
	// ExpenseServiceName is the fully-qualified name of the ExpenseService service.
	ExpenseServiceName = "splitwose.v1.ExpenseService"
	// SettlementServiceName is the fully-qualified name of the SettlementService service.
	SettlementServiceName = "splitwose.v1.SettlementService"
)

// Procedure names, used as URL paths and in interceptors.
const (
	AuthServiceRegisterProcedure       = "/splitwose.v1.AuthService/Register"
	AuthServiceLoginProcedure          = "/splitwose.v1.AuthService/Login"
	AuthServiceGetCurrentUserProcedure = "/splitwose.v1.AuthService/GetCurrentUser"

	ExpenseServiceCreateExpenseProcedure = "/splitwose.v1.ExpenseService/CreateExpense"
	ExpenseServiceListExpensesProcedure  = "/splitwose.v1.ExpenseService/ListExpenses"
	ExpenseServiceGetBalancesProcedure   = "/splitwose.v1.ExpenseService/GetBalances"

	SettlementServiceRecordSettlementProcedure = "/splitwose.v1.SettlementService/RecordSettlement"
	SettlementServiceListSettlementsProcedure  = "/splitwose.v1.SettlementService/ListSettlements"
)

// PublicProcedures can be called without a session token.
var PublicProcedures = []string{
	AuthServiceRegisterProcedure,
	AuthServiceLoginProcedure,
}

// JSONCodec is a connect.Codec for plain structs. It registers under the
// "json" name, replacing Connect's protobuf JSON codec.
type JSONCodec struct{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal implements connect.Codec.
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("invalid JSON message: %w", err)
	}
	return nil
}

// serviceMux routes a service's procedures, answering 404 for unknown ones.
func serviceMux(service string, handlers map[string]http.Handler) (string, http.Handler) {
	return "/" + service + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func trimBase(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}
