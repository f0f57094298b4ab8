package engine

import (
	"context"
	"time"

	"beaconmesh/internal/debuglog"
	"beaconmesh/internal/mesh"
	"beaconmesh/internal/radio"
	"beaconmesh/internal/telemetry"
	"beaconmesh/internal/wire"
)

// The scheduler has two independent state dimensions. Scan: stopped or
// active, with a long idle timeout reset by every received frame.
// Advertise: idle or advertising, one advertisement in flight at most, a
// fixed window per message. All timers live on the run loop; transitions
// need no locking.

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	e.scanIdleT = newStoppedTimer()
	e.advWindowT = newStoppedTimer()
	e.scanRetryT = newStoppedTimer()
	e.drainT = newStoppedTimer()
	e.startScan()
	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return
		case ev := <-e.events:
			e.dispatch(ev)
		case <-e.scanIdleT.C:
			e.onScanIdle()
		case <-e.advWindowT.C:
			e.onAdvertiseWindowEnd()
		case <-e.scanRetryT.C:
			e.startScan()
		case <-e.drainT.C:
			e.drainQueue()
		}
	}
}

func (e *Engine) dispatch(ev event) {
	switch ev.kind {
	case evWake:
		// The newest send preempts an in-flight broadcast: stop it, then
		// give the front of the queue the radio.
		if e.advActive {
			e.stopAdvertise()
		}
		e.drainQueue()
	case evFrame:
		if ev.gen != e.scanGen {
			return
		}
		e.handleFrame(ev.raw, ev.rssi)
	case evAdvertiseUp:
		if ev.gen != e.advGen || !e.advActive {
			return
		}
		debuglog.RateLimitedf("adv_up", time.Second, "advertisement on air")
	case evAdvertiseFail:
		if ev.gen != e.advGen || !e.advActive {
			return
		}
		e.onAdvertiseFailed(ev.err)
	case evRetry:
		e.onRetryTimeout(ev.id)
	}
}

func (e *Engine) shutdown() {
	stopTimer(e.scanIdleT)
	stopTimer(e.advWindowT)
	stopTimer(e.scanRetryT)
	stopTimer(e.drainT)
	if e.scanActive {
		e.scanActive = false
		_ = e.opts.Radio.StopScan()
	}
	if e.advActive {
		e.advActive = false
		_ = e.opts.Radio.StopAdvertise()
	}
	e.acks.ClearAll()
	telemetry.ScanActive.Set(0)
}

func (e *Engine) startScan() {
	if e.scanActive || e.disabled.Load() {
		return
	}
	e.scanGen++
	gen := e.scanGen
	err := e.opts.Radio.StartScan(radio.ScanFilter{Service: e.opts.Service}, func(res radio.ScanResult) {
		e.post(event{kind: evFrame, gen: gen, raw: res.Raw, rssi: res.RSSI})
	})
	if err != nil {
		class := radio.Classify(err)
		telemetry.RadioErrors.WithLabelValues(string(class)).Inc()
		if radio.Capability(err) {
			e.opts.Logger.Error().Err(err).Str("class", string(class)).Msg("radio unavailable, engine disabled")
			e.disabled.Store(true)
			return
		}
		e.opts.Logger.Warn().Err(err).Str("class", string(class)).Msg("scan start failed, will retry")
		resetTimer(e.scanRetryT, e.opts.ScanRetryDelay)
		return
	}
	e.scanActive = true
	telemetry.ScanActive.Set(1)
	resetTimer(e.scanIdleT, e.opts.ScanIdleTimeout)
	e.opts.Logger.Debug().Msg("scan started")
}

func (e *Engine) onScanIdle() {
	if !e.scanActive {
		return
	}
	e.scanGen++
	e.scanActive = false
	telemetry.ScanActive.Set(0)
	if err := e.opts.Radio.StopScan(); err != nil {
		e.opts.Logger.Debug().Err(err).Msg("stop scan")
	}
	e.opts.Logger.Debug().Msg("scan stopped after idle timeout")
}

func (e *Engine) drainQueue() {
	if e.advActive || e.disabled.Load() {
		return
	}
	msg, ok := e.queue.Dequeue()
	telemetry.QueueDepth.Set(float64(e.queue.Len()))
	if !ok {
		return
	}
	e.startAdvertise(msg)
}

func (e *Engine) startAdvertise(msg mesh.Message) {
	frame := e.encodeOutbound(msg)
	if len(frame) > wire.MaxFrameLen {
		// Upstream truncation makes this unreachable; if it ever fires the
		// message stays held in the sent cache instead of being cut here.
		telemetry.RadioErrors.WithLabelValues(string(radio.ClassPayload)).Inc()
		e.opts.Logger.Error().Int("len", len(frame)).Msg("payload exceeds frame limit, holding message")
		resetTimer(e.drainT, e.opts.DrainRetryDelay)
		return
	}
	e.advGen++
	gen := e.advGen
	e.advActive = true
	settings := radio.AdvertiseSettings{Interval: e.opts.AdvertiseInterval}
	err := e.opts.Radio.StartAdvertise(settings, frame, func(err error) {
		if err != nil {
			e.post(event{kind: evAdvertiseFail, gen: gen, err: err})
			return
		}
		e.post(event{kind: evAdvertiseUp, gen: gen})
	})
	if err != nil {
		e.onAdvertiseFailed(err)
		return
	}
	telemetry.BeaconsSent.Inc()
	resetTimer(e.advWindowT, e.opts.AdvertiseWindow)
	debuglog.Debugf("advertising frame len=%d channel=%s", len(frame), msg.ChannelID)
}

func (e *Engine) onAdvertiseFailed(err error) {
	e.advActive = false
	e.advGen++
	stopTimer(e.advWindowT)
	class := radio.Classify(err)
	telemetry.RadioErrors.WithLabelValues(string(class)).Inc()
	if radio.Capability(err) {
		e.opts.Logger.Error().Err(err).Str("class", string(class)).Msg("radio unavailable, engine disabled")
		e.disabled.Store(true)
		return
	}
	e.opts.Logger.Warn().Err(err).Str("class", string(class)).Msg("advertise failed, draining next after delay")
	if !e.scanActive {
		e.startScan()
	}
	// Drain-next semantics: the retry attempts the next queued message, not
	// necessarily the one that failed.
	resetTimer(e.drainT, e.opts.DrainRetryDelay)
}

func (e *Engine) onAdvertiseWindowEnd() {
	e.stopAdvertise()
	if !e.scanActive {
		e.startScan()
	}
	e.drainQueue()
}

func (e *Engine) stopAdvertise() {
	if !e.advActive {
		return
	}
	e.advGen++ // invalidates completion callbacks of the superseded broadcast
	e.advActive = false
	stopTimer(e.advWindowT)
	if err := e.opts.Radio.StopAdvertise(); err != nil {
		e.opts.Logger.Debug().Err(err).Msg("stop advertise")
	}
}

func (e *Engine) onRetryTimeout(id string) {
	msg, ok := e.sent.Get(id)
	if !ok {
		// Aged out of the sent cache: delivery is best-effort, abandon.
		telemetry.RetriesAbandoned.Inc()
		debuglog.RateLimitedf("retry_gone", time.Second, "retry abandoned id=%s", id)
		return
	}
	telemetry.Retries.Inc()
	e.enqueue(msg)
	e.drainQueue()
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	stopTimer(t)
	return t
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	t.Reset(d)
}
