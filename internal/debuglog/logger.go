// Package debuglog provides rate-limited debug logging for the reception
// hot path, where one log line per received frame would drown the output:
// the radio layer repeats every broadcast many times a second.
package debuglog

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.Mutex
	logger = zerolog.Nop()

	rlLast  = make(map[string]time.Time)
	rlSweep = time.Now()
)

func enabled() bool {
	return os.Getenv("BEACONMESH_DEBUG") == "1"
}

// SetLogger routes debug output through the given logger. Without it, and
// without BEACONMESH_DEBUG=1, all calls are no-ops.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

func Debugf(format string, args ...any) {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l.GetLevel() == zerolog.Disabled && !enabled() {
		return
	}
	if l.GetLevel() == zerolog.Disabled {
		l = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	l.Debug().Msgf(format, args...)
}

// RateLimitedf logs at most once per key per interval. Stale keys are swept
// opportunistically so the map stays bounded.
func RateLimitedf(key string, interval time.Duration, format string, args ...any) {
	if key == "" {
		return
	}
	now := time.Now()
	mu.Lock()
	last := rlLast[key]
	if now.Sub(last) < interval {
		mu.Unlock()
		return
	}
	rlLast[key] = now
	if now.Sub(rlSweep) > 2*interval {
		for k, ts := range rlLast {
			if now.Sub(ts) > 4*interval {
				delete(rlLast, k)
			}
		}
		rlSweep = now
	}
	mu.Unlock()
	Debugf(format, args...)
}
