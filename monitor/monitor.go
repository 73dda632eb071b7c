// Package monitor holds the prometheus collectors and the profiling listener.
package monitor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Config for the monitoring listener
type Config struct {
	Enabled bool
	Host    string
	Port    int
}

// CacheRequests counts cache reads by origin
var CacheRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_requests_total",
		Help: "Cache reads partitioned by key and origin",
	},
	[]string{"key", "origin"},
)

// CacheRefresh counts producer runs by result
var CacheRefresh = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cache_refresh_total",
		Help: "Cache producer runs partitioned by key and result",
	},
	[]string{"key", "result"},
)

// RPCRequests counts ledger rpc calls
var RPCRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rpc_requests_total",
		Help: "Ledger RPC calls partitioned by method and result",
	},
	[]string{"method", "result"},
)

// RPCDuration observes ledger rpc latency
var RPCDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "rpc_request_duration_seconds",
		Help:    "Ledger RPC latency",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method"},
)

// PriceFeedRequests counts price feed calls
var PriceFeedRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pricefeed_requests_total",
		Help: "Price feed calls partitioned by endpoint and result",
	},
	[]string{"endpoint", "result"},
)

// RateLimited counts requests rejected by the rate limiter
var RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "api_rate_limited_total",
	Help: "Requests rejected by the per client rate limiter",
})

// HTTPRequests counts served requests by route and status
var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "api_requests_total",
		Help: "Served requests partitioned by method, route and status",
	},
	[]string{"method", "route", "status"},
)

// HTTPDuration observes request latency by route
var HTTPDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "api_request_duration_seconds",
		Help:    "Request latency",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

func init() {
	prometheus.MustRegister(CacheRequests, CacheRefresh, RPCRequests, RPCDuration, PriceFeedRequests, RateLimited, HTTPRequests, HTTPDuration)
}

var (
	srv  *http.Server
	lock sync.Mutex
)

// LoopProfilingServer serves /metrics and pprof until ShutdownServer is called
func LoopProfilingServer(cfg Config) {
	if !cfg.Enabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	lock.Lock()
	srv = &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: mux}
	server := srv
	lock.Unlock()

	log.Info().Str("section", "monitor").Str("action", "start").Str("addr", server.Addr).Msg("Monitoring server - started")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Str("section", "monitor").Str("action", "listen").Msg("Unable to start monitoring server")
	}
}

// ShutdownServer stops the monitoring listener if running
func ShutdownServer() {
	lock.Lock()
	server := srv
	srv = nil
	lock.Unlock()
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Str("section", "monitor").Str("action", "stop").Msg("Unable to stop monitoring server")
	}
}
