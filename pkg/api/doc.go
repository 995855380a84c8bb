// Package api declares the request and response messages of the zbuppan.v1
// RPC services and the JSON codec they travel in.
//
// Messages are plain structs rather than generated protobuf types; JSONCodec
// registers them with Connect under the "json" codec name, so any Connect
// client speaking application/json can call the services.
package api
