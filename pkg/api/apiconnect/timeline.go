package apiconnect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/zbuppan/pkg/api"
)

const (
	TimelineServiceGetPublicTimelineProcedure = "/" + TimelineServiceName + "/GetPublicTimeline"
	TimelineServiceGetAdminTimelineProcedure  = "/" + TimelineServiceName + "/GetAdminTimeline"
)

// TimelineServiceHandler serves the public and admin purchase timelines.
type TimelineServiceHandler interface {
	GetPublicTimeline(context.Context, *connect.Request[api.GetPublicTimelineRequest]) (*connect.Response[api.GetPublicTimelineResponse], error)
	GetAdminTimeline(context.Context, *connect.Request[api.GetAdminTimelineRequest]) (*connect.Response[api.GetAdminTimelineResponse], error)
}

// NewTimelineServiceHandler returns the path prefix to mount and the handler serving it.
// Read-only procedures are marked side-effect free so clients may use GET.
func NewTimelineServiceHandler(svc TimelineServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	readOnly := append(opts, connect.WithIdempotency(connect.IdempotencyNoSideEffects))

	handlers := make(map[string]http.Handler)
	handlers[TimelineServiceGetPublicTimelineProcedure] = connect.NewUnaryHandler(TimelineServiceGetPublicTimelineProcedure, svc.GetPublicTimeline, readOnly...)
	handlers[TimelineServiceGetAdminTimelineProcedure] = connect.NewUnaryHandler(TimelineServiceGetAdminTimelineProcedure, svc.GetAdminTimeline, readOnly...)
	return "/" + TimelineServiceName + "/", route(handlers)
}

// TimelineServiceClient calls TimelineService.
type TimelineServiceClient struct {
	getPublicTimeline *connect.Client[api.GetPublicTimelineRequest, api.GetPublicTimelineResponse]
	getAdminTimeline  *connect.Client[api.GetAdminTimelineRequest, api.GetAdminTimelineResponse]
}

// NewTimelineServiceClient creates a client for the service at baseURL.
func NewTimelineServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *TimelineServiceClient {
	opts = clientOptions(opts)
	c := &TimelineServiceClient{}
	c.getPublicTimeline = connect.NewClient[api.GetPublicTimelineRequest, api.GetPublicTimelineResponse](httpClient, baseURL+TimelineServiceGetPublicTimelineProcedure, opts...)
	c.getAdminTimeline = connect.NewClient[api.GetAdminTimelineRequest, api.GetAdminTimelineResponse](httpClient, baseURL+TimelineServiceGetAdminTimelineProcedure, opts...)
	return c
}

func (c *TimelineServiceClient) GetPublicTimeline(ctx context.Context, req *connect.Request[api.GetPublicTimelineRequest]) (*connect.Response[api.GetPublicTimelineResponse], error) {
	return c.getPublicTimeline.CallUnary(ctx, req)
}

func (c *TimelineServiceClient) GetAdminTimeline(ctx context.Context, req *connect.Request[api.GetAdminTimelineRequest]) (*connect.Response[api.GetAdminTimelineResponse], error) {
	return c.getAdminTimeline.CallUnary(ctx, req)
}
