package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/zbuppan/pkg/api"
)

const (
	AdminServiceListItemsProcedure      = "/" + AdminServiceName + "/ListItems"
	AdminServiceCreateItemProcedure     = "/" + AdminServiceName + "/CreateItem"
	AdminServiceDeleteItemProcedure     = "/" + AdminServiceName + "/DeleteItem"
	AdminServiceNotifyProcedure         = "/" + AdminServiceName + "/Notify"
	AdminServiceListUsersProcedure      = "/" + AdminServiceName + "/ListUsers"
	AdminServiceGetUserHistoryProcedure = "/" + AdminServiceName + "/GetUserHistory"
	AdminServiceGetSettlementProcedure  = "/" + AdminServiceName + "/GetSettlement"
)

// AdminServiceHandler serves catalog management and user inspection.
type AdminServiceHandler interface {
	ListItems(context.Context, *connect.Request[api.AdminListItemsRequest]) (*connect.Response[api.AdminListItemsResponse], error)
	CreateItem(context.Context, *connect.Request[api.CreateItemRequest]) (*connect.Response[api.CreateItemResponse], error)
	DeleteItem(context.Context, *connect.Request[api.DeleteItemRequest]) (*connect.Response[api.DeleteItemResponse], error)
	Notify(context.Context, *connect.Request[api.NotifyRequest]) (*connect.Response[api.NotifyResponse], error)
	ListUsers(context.Context, *connect.Request[api.ListUsersRequest]) (*connect.Response[api.ListUsersResponse], error)
	GetUserHistory(context.Context, *connect.Request[api.GetUserHistoryRequest]) (*connect.Response[api.GetUserHistoryResponse], error)
	GetSettlement(context.Context, *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.GetSettlementResponse], error)
}

// NewAdminServiceHandler returns the path prefix to mount and the handler serving it.
// Read-only procedures are marked side-effect free so clients may use GET.
func NewAdminServiceHandler(svc AdminServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	readOnly := append(opts, connect.WithIdempotency(connect.IdempotencyNoSideEffects))

	handlers := make(map[string]http.Handler)
	handlers[AdminServiceListItemsProcedure] = connect.NewUnaryHandler(AdminServiceListItemsProcedure, svc.ListItems, readOnly...)
	handlers[AdminServiceCreateItemProcedure] = connect.NewUnaryHandler(AdminServiceCreateItemProcedure, svc.CreateItem, opts...)
	handlers[AdminServiceDeleteItemProcedure] = connect.NewUnaryHandler(AdminServiceDeleteItemProcedure, svc.DeleteItem, opts...)
	handlers[AdminServiceNotifyProcedure] = connect.NewUnaryHandler(AdminServiceNotifyProcedure, svc.Notify, opts...)
	handlers[AdminServiceListUsersProcedure] = connect.NewUnaryHandler(AdminServiceListUsersProcedure, svc.ListUsers, readOnly...)
	handlers[AdminServiceGetUserHistoryProcedure] = connect.NewUnaryHandler(AdminServiceGetUserHistoryProcedure, svc.GetUserHistory, readOnly...)
	handlers[AdminServiceGetSettlementProcedure] = connect.NewUnaryHandler(AdminServiceGetSettlementProcedure, svc.GetSettlement, readOnly...)
	return "/" + AdminServiceName + "/", route(handlers)
}

// AdminServiceClient calls AdminService.
type AdminServiceClient struct {
	listItems      *connect.Client[api.AdminListItemsRequest, api.AdminListItemsResponse]
	createItem     *connect.Client[api.CreateItemRequest, api.CreateItemResponse]
	deleteItem     *connect.Client[api.DeleteItemRequest, api.DeleteItemResponse]
	notify         *connect.Client[api.NotifyRequest, api.NotifyResponse]
	listUsers      *connect.Client[api.ListUsersRequest, api.ListUsersResponse]
	getUserHistory *connect.Client[api.GetUserHistoryRequest, api.GetUserHistoryResponse]
	getSettlement  *connect.Client[api.GetSettlementRequest, api.GetSettlementResponse]
}

// NewAdminServiceClient creates a client for the service at baseURL.
func NewAdminServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AdminServiceClient {
	opts = clientOptions(opts)
	c := &AdminServiceClient{}
	c.listItems = connect.NewClient[api.AdminListItemsRequest, api.AdminListItemsResponse](httpClient, baseURL+AdminServiceListItemsProcedure, opts...)
	c.createItem = connect.NewClient[api.CreateItemRequest, api.CreateItemResponse](httpClient, baseURL+AdminServiceCreateItemProcedure, opts...)
	c.deleteItem = connect.NewClient[api.DeleteItemRequest, api.DeleteItemResponse](httpClient, baseURL+AdminServiceDeleteItemProcedure, opts...)
	c.notify = connect.NewClient[api.NotifyRequest, api.NotifyResponse](httpClient, baseURL+AdminServiceNotifyProcedure, opts...)
	c.listUsers = connect.NewClient[api.ListUsersRequest, api.ListUsersResponse](httpClient, baseURL+AdminServiceListUsersProcedure, opts...)
	c.getUserHistory = connect.NewClient[api.GetUserHistoryRequest, api.GetUserHistoryResponse](httpClient, baseURL+AdminServiceGetUserHistoryProcedure, opts...)
	c.getSettlement = connect.NewClient[api.GetSettlementRequest, api.GetSettlementResponse](httpClient, baseURL+AdminServiceGetSettlementProcedure, opts...)
	return c
}

func (c *AdminServiceClient) ListItems(ctx context.Context, req *connect.Request[api.AdminListItemsRequest]) (*connect.Response[api.AdminListItemsResponse], error) {
	return c.listItems.CallUnary(ctx, req)
}

func (c *AdminServiceClient) CreateItem(ctx context.Context, req *connect.Request[api.CreateItemRequest]) (*connect.Response[api.CreateItemResponse], error) {
	return c.createItem.CallUnary(ctx, req)
}

func (c *AdminServiceClient) DeleteItem(ctx context.Context, req *connect.Request[api.DeleteItemRequest]) (*connect.Response[api.DeleteItemResponse], error) {
	return c.deleteItem.CallUnary(ctx, req)
}

func (c *AdminServiceClient) Notify(ctx context.Context, req *connect.Request[api.NotifyRequest]) (*connect.Response[api.NotifyResponse], error) {
	return c.notify.CallUnary(ctx, req)
}

func (c *AdminServiceClient) ListUsers(ctx context.Context, req *connect.Request[api.ListUsersRequest]) (*connect.Response[api.ListUsersResponse], error) {
	return c.listUsers.CallUnary(ctx, req)
}

func (c *AdminServiceClient) GetUserHistory(ctx context.Context, req *connect.Request[api.GetUserHistoryRequest]) (*connect.Response[api.GetUserHistoryResponse], error) {
	return c.getUserHistory.CallUnary(ctx, req)
}

func (c *AdminServiceClient) GetSettlement(ctx context.Context, req *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.GetSettlementResponse], error) {
	return c.getSettlement.CallUnary(ctx, req)
}
