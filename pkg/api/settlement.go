package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// SettlementServiceHandler is implemented by the settlement service.
type SettlementServiceHandler interface {
	RecordSettlement(context.Context, *connect.Request[RecordSettlementRequest]) (*connect.Response[RecordSettlementResponse], error)
	ListSettlements(context.Context, *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error)
}

// NewSettlementServiceHandler builds an HTTP handler from the service
// implementation.
func NewSettlementServiceHandler(svc SettlementServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)
	return serviceMux(SettlementServiceName, map[string]http.Handler{
		SettlementServiceRecordSettlementProcedure: connect.NewUnaryHandler(SettlementServiceRecordSettlementProcedure, svc.RecordSettlement, opts...),
		SettlementServiceListSettlementsProcedure:  connect.NewUnaryHandler(SettlementServiceListSettlementsProcedure, svc.ListSettlements, opts...),
	})
}

// SettlementServiceClient is a client for the SettlementService service.
type SettlementServiceClient struct {
	recordSettlement *connect.Client[RecordSettlementRequest, RecordSettlementResponse]
	listSettlements  *connect.Client[ListSettlementsRequest, ListSettlementsResponse]
}

// NewSettlementServiceClient constructs a client for the SettlementService service.
func NewSettlementServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SettlementServiceClient {
	baseURL = trimBase(baseURL)
	opts = append([]connect.ClientOption{connect.WithCodec(JSONCodec{})}, opts...)
	return &SettlementServiceClient{
		recordSettlement: connect.NewClient[RecordSettlementRequest, RecordSettlementResponse](httpClient, baseURL+SettlementServiceRecordSettlementProcedure, opts...),
		listSettlements:  connect.NewClient[ListSettlementsRequest, ListSettlementsResponse](httpClient, baseURL+SettlementServiceListSettlementsProcedure, opts...),
	}
}

// RecordSettlement calls splitwose.v1.SettlementService.RecordSettlement.
func (c *SettlementServiceClient) RecordSettlement(ctx context.Context, req *connect.Request[RecordSettlementRequest]) (*connect.Response[RecordSettlementResponse], error) {
	return c.recordSettlement.CallUnary(ctx, req)
}

// ListSettlements calls splitwose.v1.SettlementService.ListSettlements.
func (c *SettlementServiceClient) ListSettlements(ctx context.Context, req *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}
