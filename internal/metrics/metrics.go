// Package metrics exposes Prometheus instrumentation for the poll loop, the
// rank cache, and the upstream client. Collectors keep label cardinality
// bounded: the only label in use is a coarse failure kind.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PollTicks counts poll-loop ticks, including idle ones.
	PollTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_poll_ticks_total",
		Help: "Total number of alert poll ticks.",
	})

	// PollAliasFailures counts aliases whose processing failed within a tick.
	PollAliasFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alert_poll_alias_failures_total",
		Help: "Total number of per-alias failures inside poll ticks.",
	})

	// AlertsSent counts notifications successfully delivered to a channel.
	AlertsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alerts_sent_total",
		Help: "Total number of match alerts sent.",
	})

	// RankLookups counts rank cache lookups by outcome: hit, miss, fallback.
	RankLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rank_cache_lookups_total",
		Help: "Total number of rank cache lookups by outcome.",
	}, []string{"outcome"})

	// UpstreamErrors counts classified upstream failures: not_found,
	// rate_limited, transient.
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_errors_total",
		Help: "Total number of upstream stats API failures by kind.",
	}, []string{"kind"})
)

// Serve exposes /metrics and /healthz on addr. It blocks, so run it on its
// own goroutine; the returned error is http.ErrServerClosed on shutdown.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
