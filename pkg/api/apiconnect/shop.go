package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/zbuppan/pkg/api"
)

const (
	ShopServiceListItemsProcedure  = "/" + ShopServiceName + "/ListItems"
	ShopServicePurchaseProcedure   = "/" + ShopServiceName + "/Purchase"
	ShopServiceGetHomeProcedure    = "/" + ShopServiceName + "/GetHome"
	ShopServiceGetHistoryProcedure = "/" + ShopServiceName + "/GetHistory"
)

// ShopServiceHandler serves the signed-in shopping views.
type ShopServiceHandler interface {
	ListItems(context.Context, *connect.Request[api.ListItemsRequest]) (*connect.Response[api.ListItemsResponse], error)
	Purchase(context.Context, *connect.Request[api.PurchaseRequest]) (*connect.Response[api.PurchaseResponse], error)
	GetHome(context.Context, *connect.Request[api.GetHomeRequest]) (*connect.Response[api.GetHomeResponse], error)
	GetHistory(context.Context, *connect.Request[api.GetHistoryRequest]) (*connect.Response[api.GetHistoryResponse], error)
}

// NewShopServiceHandler returns the path prefix to mount and the handler serving it.
// Read-only procedures are marked side-effect free so clients may use GET.
func NewShopServiceHandler(svc ShopServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	readOnly := append(opts, connect.WithIdempotency(connect.IdempotencyNoSideEffects))

	handlers := make(map[string]http.Handler)
	handlers[ShopServiceListItemsProcedure] = connect.NewUnaryHandler(ShopServiceListItemsProcedure, svc.ListItems, readOnly...)
	handlers[ShopServicePurchaseProcedure] = connect.NewUnaryHandler(ShopServicePurchaseProcedure, svc.Purchase, opts...)
	handlers[ShopServiceGetHomeProcedure] = connect.NewUnaryHandler(ShopServiceGetHomeProcedure, svc.GetHome, readOnly...)
	handlers[ShopServiceGetHistoryProcedure] = connect.NewUnaryHandler(ShopServiceGetHistoryProcedure, svc.GetHistory, readOnly...)
	return "/" + ShopServiceName + "/", route(handlers)
}

// ShopServiceClient calls ShopService.
type ShopServiceClient struct {
	listItems  *connect.Client[api.ListItemsRequest, api.ListItemsResponse]
	purchase   *connect.Client[api.PurchaseRequest, api.PurchaseResponse]
	getHome    *connect.Client[api.GetHomeRequest, api.GetHomeResponse]
	getHistory *connect.Client[api.GetHistoryRequest, api.GetHistoryResponse]
}

// NewShopServiceClient creates a client for the service at baseURL.
func NewShopServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ShopServiceClient {
	opts = clientOptions(opts)
	c := &ShopServiceClient{}
	c.listItems = connect.NewClient[api.ListItemsRequest, api.ListItemsResponse](httpClient, baseURL+ShopServiceListItemsProcedure, opts...)
	c.purchase = connect.NewClient[api.PurchaseRequest, api.PurchaseResponse](httpClient, baseURL+ShopServicePurchaseProcedure, opts...)
	c.getHome = connect.NewClient[api.GetHomeRequest, api.GetHomeResponse](httpClient, baseURL+ShopServiceGetHomeProcedure, opts...)
	c.getHistory = connect.NewClient[api.GetHistoryRequest, api.GetHistoryResponse](httpClient, baseURL+ShopServiceGetHistoryProcedure, opts...)
	return c
}

func (c *ShopServiceClient) ListItems(ctx context.Context, req *connect.Request[api.ListItemsRequest]) (*connect.Response[api.ListItemsResponse], error) {
	return c.listItems.CallUnary(ctx, req)
}

func (c *ShopServiceClient) Purchase(ctx context.Context, req *connect.Request[api.PurchaseRequest]) (*connect.Response[api.PurchaseResponse], error) {
	return c.purchase.CallUnary(ctx, req)
}

func (c *ShopServiceClient) GetHome(ctx context.Context, req *connect.Request[api.GetHomeRequest]) (*connect.Response[api.GetHomeResponse], error) {
	return c.getHome.CallUnary(ctx, req)
}

func (c *ShopServiceClient) GetHistory(ctx context.Context, req *connect.Request[api.GetHistoryRequest]) (*connect.Response[api.GetHistoryResponse], error) {
	return c.getHistory.CallUnary(ctx, req)
}
