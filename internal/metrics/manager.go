package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests       *prometheus.CounterVec
	CounterRemoteRequests *prometheus.CounterVec
	CounterRoutineFormats *prometheus.CounterVec
	CounterRoutineItems   *prometheus.CounterVec

	// histograms
	HistRequestDuration *prometheus.HistogramVec
	HistRemoteDuration  *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("wlog", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("wlog", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "requests_total",
		Help:      "The total number of incoming HTTP requests",
	}, []string{"method", "status"})
	counterRemoteRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "remote_requests_total",
		Help:      "The total number of calls made to the remote store",
	}, []string{"endpoint", "status"})
	counterRoutineFormats := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "routine_payloads_total",
		Help:      "Routine payloads decoded, by stored format",
	}, []string{"format"})
	counterRoutineItems := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "routine_items_total",
		Help:      "Routine items decoded, by how they were read",
	}, []string{"kind"})

	histRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Duration of incoming HTTP requests in seconds",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method"})
	histRemoteDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "remote_request_duration_seconds",
		Help:      "Duration of remote store calls in seconds, retries included",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	return &Manager{
		CounterRequests:       counterRequests,
		CounterRemoteRequests: counterRemoteRequests,
		CounterRoutineFormats: counterRoutineFormats,
		CounterRoutineItems:   counterRoutineItems,
		HistRequestDuration:   histRequestDuration,
		HistRemoteDuration:    histRemoteDuration,
	}
}
