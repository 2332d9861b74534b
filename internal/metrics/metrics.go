// Package metrics registers the bot's Prometheus counters and serves /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FeedPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "feed_polls_total", Help: "Feed polls by result (empty, error, revealed)"},
		[]string{"result"},
	)
	RevealsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "reveals_total", Help: "Targets detected as revealed"},
		[]string{"target"},
	)
	ExecutionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "executions_total", Help: "Execution phases entered; never exceeds one per process"},
	)
	SwapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swaps_total", Help: "Swap sub-flow outcomes by final stage"},
		[]string{"target", "stage", "result"},
	)
)

func init() {
	prometheus.MustRegister(FeedPollsTotal, RevealsTotal, ExecutionsTotal, SwapsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
