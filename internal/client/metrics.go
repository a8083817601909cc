package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes used as metric labels
const (
	outcomeOK            = "ok"
	outcomeTransport     = "transport_error"
	outcomeEncode        = "encode_error"
	outcomeServerError   = "server_error"
	outcomeProtocolError = "protocol_error"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ods_client_requests_total",
			Help: "Requests sent to the classification service by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ods_client_request_duration_seconds",
			Help:    "Round trip time of requests to the classification service",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
}

func observe(endpoint, outcome string, elapsed time.Duration) {
	requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}
