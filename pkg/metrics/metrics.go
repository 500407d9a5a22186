package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeOK          = "ok"
	OutcomeError       = "error"
	OutcomeUnreachable = "unreachable"
	OutcomeNotFound    = "not_found"
	OutcomeRejected    = "rejected"
)

var (
	Joins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_joins_total",
		Help: "Join requests by outcome",
	}, []string{"outcome"})

	Leaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_leaves_total",
		Help: "Leave requests by outcome",
	}, []string{"outcome"})

	RoomServiceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_room_service_requests_total",
		Help: "Room service admin RPC calls by method and outcome",
	}, []string{"method", "outcome"})

	RoomServiceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voice_room_service_request_seconds",
		Help:    "Room service admin RPC latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	CallStatusEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_call_status_events_total",
		Help: "Call status events appended to conversation timelines",
	}, []string{"status"})

	ActiveCallSlots = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_call_slots_acquired",
		Help: "Per-channel call slots held by this process (approximate)",
	})
)
