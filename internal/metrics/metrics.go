package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AskRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentgate_ask_requests_total",
			Help: "Handled ask/execute requests by outcome",
		},
		[]string{"outcome"},
	)

	ProbeResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentgate_probe_total",
			Help: "Capability probes by backend and result",
		},
		[]string{"backend", "result"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "intentgate_dispatch_duration_seconds",
			Help: "Backend dispatch latency in seconds",
		},
		[]string{"backend", "action"},
	)

	ModelLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "intentgate_model_latency_seconds",
			Help: "Generative model call latency in seconds",
		},
	)
)
