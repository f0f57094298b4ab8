package radiosim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	quic "github.com/quic-go/quic-go"
	"github.com/rs/zerolog"

	"beaconmesh/internal/radio"
	"beaconmesh/internal/wire"
)

const defaultRSSI = -60

type Options struct {
	HubAddr  string
	Insecure bool
	// RSSI is the simulated signal strength reported with every received
	// frame, jittered a few dBm to look like a moving peer.
	RSSI int
	Log  zerolog.Logger
}

// Radio implements radio.Radio on top of a hub connection. Advertising
// re-sends the active payload on a short interval for as long as the
// advertisement is up, reproducing the repetition of the real medium.
type Radio struct {
	opts Options
	conn *quic.Conn

	mu       sync.Mutex
	scanStop context.CancelFunc
	advStop  chan struct{}
}

func Dial(ctx context.Context, opts Options) (*Radio, error) {
	tlsConf, err := clientTLSConfig(opts.Insecure)
	if err != nil {
		return nil, err
	}
	conn, err := quic.DialAddr(ctx, opts.HubAddr, tlsConf, &quic.Config{EnableDatagrams: true})
	if err != nil {
		return nil, fmt.Errorf("dial hub: %w", err)
	}
	if opts.RSSI == 0 {
		opts.RSSI = defaultRSSI
	}
	return &Radio{opts: opts, conn: conn}, nil
}

func (r *Radio) StartScan(_ radio.ScanFilter, cb func(radio.ScanResult)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scanStop != nil {
		return radio.ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.scanStop = cancel
	go func() {
		for {
			data, err := r.conn.ReceiveDatagram(ctx)
			if err != nil {
				return
			}
			cb(radio.ScanResult{Raw: data, RSSI: r.rssi()})
		}
	}()
	return nil
}

func (r *Radio) StopScan() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scanStop == nil {
		return nil
	}
	r.scanStop()
	r.scanStop = nil
	return nil
}

func (r *Radio) StartAdvertise(settings radio.AdvertiseSettings, payload []byte, cb func(error)) error {
	if len(payload) > wire.MaxFrameLen {
		go cb(radio.ErrPayloadTooLarge)
		return nil
	}
	interval := settings.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	r.mu.Lock()
	if r.advStop != nil {
		close(r.advStop)
	}
	stop := make(chan struct{})
	r.advStop = stop
	r.mu.Unlock()

	frame := append([]byte(nil), payload...)
	go func() {
		if err := r.conn.SendDatagram(frame); err != nil {
			cb(fmt.Errorf("%w: %v", radio.ErrInternal, err))
			return
		}
		cb(nil)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = r.conn.SendDatagram(frame)
			}
		}
	}()
	return nil
}

func (r *Radio) StopAdvertise() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.advStop == nil {
		return nil
	}
	close(r.advStop)
	r.advStop = nil
	return nil
}

func (r *Radio) Close() error {
	_ = r.StopScan()
	_ = r.StopAdvertise()
	return r.conn.CloseWithError(0, "radio closed")
}

func (r *Radio) rssi() int {
	return r.opts.RSSI + rand.Intn(7) - 3
}
