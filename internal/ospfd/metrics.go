package ospfd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// neighborStateGauge reports the current numeric state (0=Down..7=Full)
	// of each known neighbor, labeled by interface and neighbor router ID.
	neighborStateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ospfd_neighbor_state",
			Help: "Current neighbor adjacency state (0=Down .. 7=Full).",
		},
		[]string{"interface", "neighbor"})

	// interfaceStateGauge reports the current numeric state of each
	// interface (0=Down .. 6=DR).
	interfaceStateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ospfd_interface_state",
			Help: "Current interface state (0=Down .. 6=DR).",
		},
		[]string{"interface"})

	// lsdbSizeGauge tracks the number of LSAs currently held in the
	// link-state database.
	lsdbSizeGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ospfd_lsdb_size",
			Help: "Number of LSAs currently in the link-state database.",
		})

	// spfDurationHistogram tracks how long each SPF run takes.
	spfDurationHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ospfd_spf_run_duration_seconds",
			Help:    "Duration of each SPF computation.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		})

	// fibFailureCount counts FIB install/remove failures, labeled by
	// "install" or "remove"; individual failures are logged and otherwise
	// swallowed so one bad route doesn't abort the rest of a diff.
	fibFailureCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ospfd_fib_failure_total",
			Help: "Number of FIB install/remove failures.",
		}, []string{"op"})

	// packetsReceivedCount and malformedPacketCount track wire traffic.
	packetsReceivedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ospfd_packets_received_total",
			Help: "Number of OSPFv2 packets received, by type.",
		}, []string{"type"})

	malformedPacketCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ospfd_malformed_packet_total",
			Help: "Number of packets dropped for failing checksum or parse.",
		})
)
