// Package telemetry exposes the engine's counters on a dedicated
// prometheus registry. Mount Handler() on the node's HTTP mux to scrape.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	FramesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconmesh",
		Name:      "frames_received_total",
		Help:      "Raw frames handed to the reception pipeline.",
	})

	FramesDuplicate = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconmesh",
		Name:      "frames_duplicate_total",
		Help:      "Frames dropped by the dedup filter.",
	})

	FramesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beaconmesh",
		Name:      "frames_dropped_total",
		Help:      "Frames dropped after dedup, by reason.",
	}, []string{"reason"})

	MessagesDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconmesh",
		Name:      "messages_delivered_total",
		Help:      "Decoded messages handed to the upstream router.",
	})

	ControlReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beaconmesh",
		Name:      "control_received_total",
		Help:      "Control frames received, by type.",
	}, []string{"type"})

	BeaconsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconmesh",
		Name:      "beacons_sent_total",
		Help:      "Advertisements started.",
	})

	AcksSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconmesh",
		Name:      "acks_sent_total",
		Help:      "Acknowledgment frames synthesized for received traffic.",
	})

	AcksReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconmesh",
		Name:      "acks_received_total",
		Help:      "Acknowledgments matched to a pending record.",
	})

	Retries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconmesh",
		Name:      "retries_total",
		Help:      "Retry callbacks that re-queued a cached message.",
	})

	RetriesAbandoned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconmesh",
		Name:      "retries_abandoned_total",
		Help:      "Retry callbacks whose id had aged out of the sent cache.",
	})

	QueueEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "beaconmesh",
		Name:      "queue_evictions_total",
		Help:      "Oldest-entry evictions from the outbound queue.",
	})

	RadioErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "beaconmesh",
		Name:      "radio_errors_total",
		Help:      "Radio operation failures, by class.",
	}, []string{"class"})

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "beaconmesh",
		Name:      "outbound_queue_depth",
		Help:      "Messages currently awaiting a transmit slot.",
	})

	ScanActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "beaconmesh",
		Name:      "scan_active",
		Help:      "1 while the scanner is running.",
	})

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "beaconmesh",
		Name:      "uptime_seconds",
		Help:      "Process uptime in seconds.",
	}, func() float64 { return time.Since(startTime).Seconds() })
)

func init() {
	Registry.MustRegister(
		FramesReceived, FramesDuplicate, FramesDropped, MessagesDelivered,
		ControlReceived, BeaconsSent, AcksSent, AcksReceived,
		Retries, RetriesAbandoned, QueueEvictions, RadioErrors,
		QueueDepth, ScanActive, uptime,
	)
}

// Handler serves the registry. Mount it with mux.Handle("/metrics", telemetry.Handler()).
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
