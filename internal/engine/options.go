package engine

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"beaconmesh/internal/ack"
	"beaconmesh/internal/dedup"
	"beaconmesh/internal/outbound"
	"beaconmesh/internal/radio"
)

const (
	defaultService           = "beaconmesh/1"
	defaultScanIdleTimeout   = 5 * time.Minute
	defaultAdvertiseWindow   = 10 * time.Second
	defaultAdvertiseInterval = 250 * time.Millisecond
	defaultScanRetryDelay    = 5 * time.Second
	defaultDrainRetryDelay   = 2 * time.Second
)

type Options struct {
	// SenderID rides the wire truncated or zero-padded to 4 bytes.
	SenderID string
	Nickname string
	Service  string

	Radio    radio.Radio
	Upstream MessageRouter
	Peers    PeerTracker
	Logger   zerolog.Logger

	// Scheduler timings. Zero values take the defaults; the BEACONMESH_*
	// millisecond knobs below override both, which is how tests shrink the
	// duty cycle.
	ScanIdleTimeout   time.Duration // BEACONMESH_SCAN_IDLE_MS
	AdvertiseWindow   time.Duration // BEACONMESH_ADVERTISE_MS
	AdvertiseInterval time.Duration // BEACONMESH_ADVERTISE_INTERVAL_MS
	ScanRetryDelay    time.Duration // BEACONMESH_SCAN_RETRY_MS
	DrainRetryDelay   time.Duration // BEACONMESH_DRAIN_RETRY_MS
	AckTimeout        time.Duration // BEACONMESH_ACK_TIMEOUT_MS
	AckRetries        int

	QueueCapacity     int
	DedupCapacity     int
	SentCacheCapacity int
}

func (o *Options) applyDefaults() {
	if o.Service == "" {
		o.Service = defaultService
	}
	o.ScanIdleTimeout = knob("BEACONMESH_SCAN_IDLE_MS", o.ScanIdleTimeout, defaultScanIdleTimeout)
	o.AdvertiseWindow = knob("BEACONMESH_ADVERTISE_MS", o.AdvertiseWindow, defaultAdvertiseWindow)
	o.AdvertiseInterval = knob("BEACONMESH_ADVERTISE_INTERVAL_MS", o.AdvertiseInterval, defaultAdvertiseInterval)
	o.ScanRetryDelay = knob("BEACONMESH_SCAN_RETRY_MS", o.ScanRetryDelay, defaultScanRetryDelay)
	o.DrainRetryDelay = knob("BEACONMESH_DRAIN_RETRY_MS", o.DrainRetryDelay, defaultDrainRetryDelay)
	o.AckTimeout = knob("BEACONMESH_ACK_TIMEOUT_MS", o.AckTimeout, ack.DefaultRetryTimeout)
	if o.AckRetries <= 0 {
		o.AckRetries = ack.DefaultMaxRetries
	}
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = outbound.DefaultQueueCapacity
	}
	if o.DedupCapacity <= 0 {
		o.DedupCapacity = dedup.DefaultCapacity
	}
	if o.SentCacheCapacity <= 0 {
		o.SentCacheCapacity = outbound.DefaultCacheCapacity
	}
}

func knob(key string, set, def time.Duration) time.Duration {
	if v, ok := envInt(key); ok && v > 0 {
		return time.Duration(v) * time.Millisecond
	}
	if set > 0 {
		return set
	}
	return def
}

func envInt(key string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
