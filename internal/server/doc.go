// Package server implements the HTTP API using Echo framework.
//
// Routes: event-streams (provision/list/delete), platform accounts (connect,
// set-code, scopes), broadcast status and stop, AV carts (stream-info,
// control, heartbeat), plus health/metrics/version.
// Handlers split by domain: handlers_streams.go, handlers_platforms.go,
// handlers_carts.go, handlers_health.go.
package server
