// Package metrics exposes the server's Prometheus instrumentation. All
// collectors are registered on the default registry and served by the
// optional /metrics listener.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "world_tick_duration_seconds",
		Help:    "Wall time of one full game tick.",
		Buckets: []float64{.001, .005, .010, .020, .035, .050, .075, .100, .250},
	})

	TickOverruns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "world_tick_overruns_total",
		Help: "Ticks that ran longer than the tick interval.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "world_active_sessions",
		Help: "Connected TCP sessions.",
	})

	PlayersInWorld = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "world_players_in_world",
		Help: "Players currently placed in a zone channel.",
	})

	FramesIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "world_frames_in_total",
		Help: "TCP frames received.",
	})

	FramesOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "world_frames_out_total",
		Help: "TCP frames sent.",
	})

	DatagramsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "world_datagrams_accepted_total",
		Help: "UDP datagrams that passed every verification gate.",
	})

	DatagramsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "world_datagrams_dropped_total",
		Help: "UDP datagrams dropped, by rejecting gate.",
	}, []string{"reason"})

	InputQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "world_input_queue_depth",
		Help: "Messages waiting in the game-loop intake at tick start.",
	})

	PersistFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "world_persist_flushes_total",
		Help: "Write-back flushes, by tier.",
	}, []string{"tier"})

	PersistErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "world_persist_errors_total",
		Help: "Write-back failures, by tier.",
	}, []string{"tier"})

	CheatRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "world_cheat_rejections_total",
		Help: "Inputs rejected by server-side validation, by rule.",
	}, []string{"rule"})
)

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
