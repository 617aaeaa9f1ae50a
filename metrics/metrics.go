// Package metrics defines the Prometheus collectors exported by the Keyrunes
// SDK. It is the single source of truth for metric names, labels, and help
// strings.
//
// Collectors register themselves with the default Prometheus registry on
// import; embedding applications expose them through their usual /metrics
// endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "keyrunes"

// RequestsTotal counts HTTP exchanges with the Keyrunes service.
// Labels:
//   - method: the HTTP method ("GET", "POST")
//   - status: the numeric response status, or "network_error" when the
//     request never completed
var RequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Total number of HTTP requests issued to the Keyrunes service.",
	},
	[]string{"method", "status"},
)

// RequestDuration measures the wall-clock duration of each HTTP exchange.
// Label:
//   - method: the HTTP method
var RequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests to the Keyrunes service.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"method"},
)

// GroupChecksTotal counts group-membership check outcomes.
// Label:
//   - result: "granted", "denied", or "not_found" (absent user/group read
//     as no access)
var GroupChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "group_checks_total",
		Help:      "Total number of group membership checks, by outcome.",
	},
	[]string{"result"},
)
