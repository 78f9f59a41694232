// Package metrics defines the Prometheus collectors for the admin API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provisioning Metrics
var (
	// ProvisionEventsTotal tracks per-event provisioning outcomes
	ProvisionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provision_events_total",
			Help: "Per-event provisioning outcomes (provisioned/skipped/failed)",
		},
		[]string{"platform", "result"},
	)

	// ProvisionBatchDuration tracks provisioning batch duration
	ProvisionBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "provision_batch_duration_seconds",
			Help:    "Duration of one provisioning batch in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Platform API Metrics
var (
	// PlatformCallsTotal tracks calls to video platform APIs by operation and status
	PlatformCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platform_calls_total",
			Help: "Video platform API calls by platform, operation and status",
		},
		[]string{"platform", "operation", "status"},
	)

	// PlatformCallDuration tracks platform API call latency
	PlatformCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "platform_call_duration_seconds",
			Help:    "Video platform API call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"platform", "operation"},
	)

	// TokenRefreshesTotal tracks OAuth token refreshes by platform and result
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_refreshes_total",
			Help: "OAuth token refreshes by platform and result (success/revoked/error)",
		},
		[]string{"platform", "result"},
	)
)

// Status Cache Metrics
var (
	// StatusCacheHits tracks platform status lookups served from cache
	StatusCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "status_cache_hits_total",
			Help: "Platform status lookups served from the in-memory cache",
		},
	)

	// StatusCacheMisses tracks platform status lookups that hit the platform API
	StatusCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "status_cache_misses_total",
			Help: "Platform status lookups that fell through to the platform API",
		},
	)
)

// Cart Control Metrics
var (
	// CartCommandsTotal tracks cart control commands by mode and result
	CartCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_commands_total",
			Help: "Cart control commands by mode and result (accepted/rejected/failed)",
		},
		[]string{"mode", "result"},
	)

	// CartHeartbeatsTotal tracks device heartbeats recorded
	CartHeartbeatsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cart_heartbeats_total",
			Help: "Device heartbeats recorded",
		},
	)
)

// Database Metrics
var (
	// DBErrorsTotal tracks database errors by query name
	DBErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total database errors by query",
		},
		[]string{"query"},
	)
)

// Build Information Metrics
var (
	// BuildInfo is a gauge that always returns 1, with build metadata as labels
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build information with version, commit, build_time, and go_version labels (value is always 1)",
		},
		[]string{"version", "commit", "build_time", "go_version"},
	)
)
