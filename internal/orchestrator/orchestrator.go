// Package orchestrator owns a device session's lifecycle: it spawns and
// supervises the metrics, screenshot and log loops, applies the
// reconnection policy, and multiplexes every collaborator's output to one
// telemetry.Sink.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"veloperfd/internal/frametiming"
	"veloperfd/internal/logclassifier"
	"veloperfd/internal/obslog"
	"veloperfd/internal/sampler"
	"veloperfd/internal/shellchan"
	"veloperfd/internal/telemetry"
)

const (
	metricsInterval    = 1 * time.Second
	screenshotInterval = 2 * time.Second
	reconnectThreshold = 4
	reconnectBackoff   = 2 * time.Second
)

// Screenshotter captures a single screenshot frame; implementations are
// free to re-encode however they like, as long as the contract (JPEG
// quality 40, owner-chosen storage) is honored downstream.
type Screenshotter interface {
	Capture(ctx context.Context) (path string, err error)
}

// Orchestrator drives one device's three independent sampling cadences.
type Orchestrator struct {
	session *telemetry.Session
	ch      shellchan.Channel
	sink    telemetry.Sink

	sampler     *sampler.Sampler
	frameEngine *frametiming.Engine
	classifier  *logclassifier.Classifier
	shots       Screenshotter
	mountPrefix string

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an Orchestrator for one device session. shots may be nil,
// in which case the screenshot loop is skipped entirely (useful when an
// owner has no screenshot storage configured).
func New(session *telemetry.Session, ch shellchan.Channel, sink telemetry.Sink, shots Screenshotter, mountPrefix string) *Orchestrator {
	return &Orchestrator{
		session:     session,
		ch:          ch,
		sink:        sink,
		sampler:     sampler.New(),
		frameEngine: frametiming.New(),
		classifier:  logclassifier.New(),
		shots:       shots,
		mountPrefix: mountPrefix,
	}
}

// SetTarget replaces the target package. It is picked up by the next
// metrics tick; if none was set the metrics loop infers one from the
// foreground activity, per the component's discovery fallback. Changing
// the target clears every collaborator's per-target cache (PID set,
// active layer, network baseline) so a subsequent stop/start cycle starts
// clean, with no residual state from the previous target.
func (o *Orchestrator) SetTarget(pkg string) {
	o.session.SetTarget(pkg)
	o.session.SetPIDs(nil)
	o.sampler.Reset()
	o.frameEngine.Reset()
}

// Start marks the session running and spawns the three independent loops.
// Calling Start on an already-running Orchestrator is a no-op.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session.IsRunning() {
		return
	}
	o.session.SetRunning(true)

	loopCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.wg.Add(1)
	go func() { defer o.wg.Done(); o.metricsLoop(loopCtx) }()

	if o.shots != nil {
		o.wg.Add(1)
		go func() { defer o.wg.Done(); o.screenshotLoop(loopCtx) }()
	}

	o.wg.Add(1)
	go func() { defer o.wg.Done(); o.logLoop(loopCtx) }()
}

// Stop is idempotent and race-safe: it clears the running flag and cancels
// every loop's context, then waits for them to exit.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.session.IsRunning() {
		o.mu.Unlock()
		return
	}
	o.session.SetRunning(false)
	cancel := o.cancel
	o.cancel = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
}

// metricsLoop runs the 1-second sampling cadence, applying the
// reconnection policy: four consecutive TransportLost/unknown errors
// trigger a fresh device handle plus a liveness probe, with a 2-second
// backoff between failed reconnect attempts and the counter reset to zero
// on success.
func (o *Orchestrator) metricsLoop(ctx context.Context) {
	failCount := 0
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if failCount >= reconnectThreshold {
			if err := o.ch.Reconnect(ctx); err != nil {
				select {
				case <-ctx.Done():
					return
				case <-time.After(reconnectBackoff):
				}
				continue
			}
			failCount = 0
		}

		if err := o.tickMetrics(ctx); err != nil {
			failCount++
		} else {
			failCount = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) tickMetrics(ctx context.Context) error {
	pkg := o.session.Target()
	if pkg == "" {
		discovered, err := sampler.DiscoverTopPackage(ctx, o.ch)
		if err != nil {
			return err
		}
		if discovered != "" {
			o.session.SetTarget(discovered)
			pkg = discovered
		}
	}
	if pkg == "" {
		return nil
	}

	sample, err := o.sampler.Collect(ctx, o.ch, o.session, pkg)
	if err != nil {
		return err
	}

	frame, err := o.frameEngine.Compute(ctx, o.ch, pkg)
	if err != nil {
		return err
	}
	sample.FPS = frame.FPS
	sample.Jank = frame.Jank
	sample.StutterPercent = frame.StutterPercent

	o.sink.Emit(telemetry.NewSample(o.session.ID, sample))
	return nil
}

// screenshotLoop runs the 2-second screenshot cadence. Capture errors are
// logged and the loop simply continues; per the
// error handling design, a degraded screenshot loop never escalates to a
// reconnect (only the metrics loop's TransportLost counter does that).
func (o *Orchestrator) screenshotLoop(ctx context.Context) {
	limiter := rate.NewLimiter(rate.Every(screenshotInterval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		ts := time.Now().UnixMilli()
		path, err := o.shots.Capture(ctx)
		if err != nil {
			obslog.LogWarn("orchestrator").Err(err).Msg("screenshot capture failed")
			continue
		}
		o.sink.Emit(telemetry.NewScreenshot(o.session.ID, telemetry.ScreenshotEvent{
			TimestampMs: ts,
			URL:         fmt.Sprintf("%s/%s", o.mountPrefix, path),
		}))
	}
}

// logLoop runs the log classifier for the lifetime of this session. It
// does not restart itself on EOF or stream error — a new session restarts
// log collection, matching the component's restart-on-new-session policy.
func (o *Orchestrator) logLoop(ctx context.Context) {
	_ = o.classifier.Run(ctx, o.ch, o.session, o.sink)
}

func isTransportLost(err error) bool {
	return err != nil && errors.Is(err, shellchan.ErrTransportLost)
}
