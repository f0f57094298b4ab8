// Package radio is the narrow abstraction over the platform radio stack.
// The engine depends only on this surface, which keeps the scheduler
// testable without hardware: tests inject a fake, the demo binaries inject
// the simulated medium from internal/radiosim.
package radio

import (
	"errors"
	"time"
)

// ScanFilter restricts reception to frames of one service.
type ScanFilter struct {
	Service string
}

// ScanResult is one received broadcast with its signal strength in dBm.
type ScanResult struct {
	Raw  []byte
	RSSI int
}

// AdvertiseSettings controls how an advertisement is repeated on the medium
// for the duration of its window.
type AdvertiseSettings struct {
	Interval time.Duration
}

// Radio is the capability surface. StartScan returns synchronously; scan
// results arrive on the callback from an arbitrary goroutine. StartAdvertise
// completes asynchronously: the callback receives nil once the advertisement
// is on air, or the failure. A callback may arrive after the operation has
// been superseded; the engine discards stale ones by generation.
type Radio interface {
	StartScan(filter ScanFilter, cb func(ScanResult)) error
	StopScan() error
	StartAdvertise(settings AdvertiseSettings, payload []byte, cb func(error)) error
	StopAdvertise() error
}

// Failure taxonomy. Capability errors disable the engine until resolved
// externally; everything else is retried on a fixed delay.
var (
	ErrAlreadyStarted   = errors.New("radio: already started")
	ErrPermissionDenied = errors.New("radio: permission denied")
	ErrUnsupported      = errors.New("radio: unsupported")
	ErrInternal         = errors.New("radio: internal failure")
	ErrPayloadTooLarge  = errors.New("radio: payload too large")
)

// Class labels a failure for logging and telemetry.
type Class string

const (
	ClassAlreadyStarted Class = "already_started"
	ClassPermission     Class = "permission_denied"
	ClassUnsupported    Class = "unsupported"
	ClassInternal       Class = "internal"
	ClassPayload        Class = "payload_too_large"
	ClassOther          Class = "other"
)

func Classify(err error) Class {
	switch {
	case errors.Is(err, ErrAlreadyStarted):
		return ClassAlreadyStarted
	case errors.Is(err, ErrPermissionDenied):
		return ClassPermission
	case errors.Is(err, ErrUnsupported):
		return ClassUnsupported
	case errors.Is(err, ErrPayloadTooLarge):
		return ClassPayload
	case errors.Is(err, ErrInternal):
		return ClassInternal
	default:
		return ClassOther
	}
}

// Capability reports whether the failure is persistent: the radio is absent
// or forbidden, and retrying cannot help.
func Capability(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrUnsupported)
}
