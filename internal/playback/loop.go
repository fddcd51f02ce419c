// Package playback drives the pull -> filter -> render cycle and owns all
// recovery policy: camera outages, stream drops and corrupt frames are
// expected conditions retried with bounded exponential backoff, never
// reasons to exit the process.
package playback

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/camkiosk/camkiosk/internal/config"
	"github.com/camkiosk/camkiosk/internal/domain"
)

// Loop orchestrates the capture-filter-render pipeline. All collaborators
// are injected so a single iteration can be unit tested in isolation.
type Loop struct {
	logger  *zap.Logger
	source  domain.Source
	filter  domain.Filter
	surface domain.Surface

	limiter     *rate.Limiter
	backoffBase time.Duration
	backoffMax  time.Duration

	// waitFn performs interruptible backoff waits; swapped in tests.
	waitFn func(ctx context.Context, d time.Duration) error

	failures int
	rendered uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewLoop creates the orchestrator.
func NewLoop(
	logger *zap.Logger,
	cfg *config.Config,
	src domain.Source,
	flt domain.Filter,
	surf domain.Surface,
) *Loop {
	return &Loop{
		logger:      logger,
		source:      src,
		filter:      flt,
		surface:     surf,
		limiter:     rate.NewLimiter(rate.Limit(cfg.TargetFPS), 1),
		backoffBase: cfg.BackoffBase,
		backoffMax:  cfg.BackoffMax,
		waitFn:      waitInterruptible,
	}
}

// Start launches the playback loop in a goroutine and returns immediately.
func (l *Loop) Start(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}
	// The loop outlives the fx startup context; Stop owns cancellation.
	runCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.running = true

	l.wg.Add(1)
	go l.run(runCtx)
	return nil
}

// Stop cancels the loop and waits for the in-flight iteration. Breaking
// out of an active backoff wait happens promptly because every wait
// selects on the loop context.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	l.cancel()
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		l.logger.Info("Playback loop stopped", zap.Uint64("framesRendered", l.rendered))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes steps until the context ends.
func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()
	l.logger.Info("Playback loop started",
		zap.String("filter", l.filter.Name()),
		zap.Float64("targetFPS", float64(l.limiter.Limit())))

	for {
		if err := l.step(ctx); err != nil {
			// Only context termination escapes a step.
			l.logger.Info("Playback loop exiting", zap.Error(err))
			return
		}
	}
}

// step performs exactly one iteration of the state machine: wait for the
// cadence slot, pull a frame, filter it, present it. Recoverable failures
// are converted into a backoff wait; the only error ever returned is
// context termination.
func (l *Loop) step(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	frame, err := l.source.NextFrame(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return l.handleSourceError(ctx, err)
	}
	l.resetFailures()

	filtered, err := l.filter.Apply(frame)
	if err != nil {
		// Malformed frame: skip it, keep the loop running.
		l.logger.Warn("Filter rejected frame",
			zap.Uint64("seq", frame.Seq),
			zap.Error(err))
		return nil
	}

	l.surface.Present(filtered)
	l.rendered++
	return nil
}

// handleSourceError applies the retry policy for a failed pull.
func (l *Loop) handleSourceError(ctx context.Context, err error) error {
	l.failures++
	delay := Delay(l.failures, l.backoffBase, l.backoffMax)

	if domain.IsRecoverable(err) {
		l.logger.Warn("Stream failure, backing off",
			zap.Int("consecutiveFailures", l.failures),
			zap.Duration("delay", delay),
			zap.Stringer("state", l.source.State()),
			zap.Error(err))
	} else {
		// Unknown source errors get the same treatment: the process
		// supervisor handles genuine fatality, not this loop.
		l.logger.Error("Unexpected stream error, backing off",
			zap.Int("consecutiveFailures", l.failures),
			zap.Duration("delay", delay),
			zap.Error(err))
	}

	return l.waitFn(ctx, delay)
}

func (l *Loop) resetFailures() {
	if l.failures > 0 {
		l.logger.Info("Stream recovered",
			zap.Int("failuresBeforeRecovery", l.failures))
		l.failures = 0
	}
}

// waitInterruptible sleeps for d but returns immediately with the context
// error on cancellation, so shutdown never waits out a full backoff.
func waitInterruptible(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
