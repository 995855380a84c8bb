// Package apiconnect wires the zbuppan.v1 services to Connect handlers and
// clients.
package apiconnect

import (
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/zbuppan/pkg/api"
)

const (
	AuthServiceName     = "zbuppan.v1.AuthService"
	ShopServiceName     = "zbuppan.v1.ShopService"
	TimelineServiceName = "zbuppan.v1.TimelineService"
	AdminServiceName    = "zbuppan.v1.AdminService"
)

// IdempotencyKeyHeader carries the client-chosen key that makes Purchase
// safe to retry.
const IdempotencyKeyHeader = "Idempotency-Key"

var codec = connect.WithCodec(api.JSONCodec{})

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{codec}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{codec}, opts...)
}

// route dispatches requests under a service prefix to the handler of each
// procedure.
func route(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}
