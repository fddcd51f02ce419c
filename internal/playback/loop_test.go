package playback

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/camkiosk/camkiosk/internal/config"
	"github.com/camkiosk/camkiosk/internal/domain"
	"github.com/camkiosk/camkiosk/internal/domain/mocks"
)

func testFrame(seq uint64) *domain.Frame {
	return &domain.Frame{
		Seq:       seq,
		Timestamp: time.Now(),
		Image:     image.NewNRGBA(image.Rect(0, 0, 4, 4)),
	}
}

// newTestLoop builds a loop with a fast cadence and a waitFn that records
// every backoff delay instead of sleeping.
func newTestLoop(src domain.Source, flt domain.Filter, surf domain.Surface) (*Loop, *[]time.Duration) {
	cfg := &config.Config{
		TargetFPS:   1000,
		BackoffBase: time.Second,
		BackoffMax:  30 * time.Second,
	}
	l := NewLoop(zap.NewNop(), cfg, src, flt, surf)

	var waits []time.Duration
	l.waitFn = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return l, &waits
}

func TestStep_RendersFrame(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	flt := mocks.NewMockFilter(ctrl)
	surf := mocks.NewMockSurface(ctrl)

	raw := testFrame(1)
	filtered := testFrame(1)
	src.EXPECT().NextFrame(gomock.Any()).Return(raw, nil)
	flt.EXPECT().Apply(raw).Return(filtered, nil)
	surf.EXPECT().Present(filtered)

	l, _ := newTestLoop(src, flt, surf)
	if err := l.step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
	if l.rendered != 1 {
		t.Errorf("expected 1 rendered frame, got %d", l.rendered)
	}
}

// TestStep_OutageThenRecovery is the core resilience property: any number of
// consecutive stream failures produces growing backoff waits, never a dead
// loop, and the first good frame afterwards reaches the surface.
func TestStep_OutageThenRecovery(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	flt := mocks.NewMockFilter(ctrl)
	surf := mocks.NewMockSurface(ctrl)

	const failures = 7

	src.EXPECT().NextFrame(gomock.Any()).
		Return(nil, fmt.Errorf("pull: %w", domain.ErrConnection)).
		Times(failures)
	src.EXPECT().State().Return(domain.StateFailed).Times(failures)

	frame := testFrame(1)
	src.EXPECT().NextFrame(gomock.Any()).Return(frame, nil)
	flt.EXPECT().Apply(frame).Return(frame, nil)
	surf.EXPECT().Present(frame)

	l, waits := newTestLoop(src, flt, surf)
	ctx := context.Background()

	for i := 0; i < failures+1; i++ {
		if err := l.step(ctx); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if len(*waits) != failures {
		t.Fatalf("expected %d backoff waits, got %d", failures, len(*waits))
	}
	prev := time.Duration(0)
	for i, d := range *waits {
		if d < prev {
			t.Errorf("backoff shrank at failure %d: %v -> %v", i+1, prev, d)
		}
		if d > l.backoffMax {
			t.Errorf("backoff exceeded cap at failure %d: %v", i+1, d)
		}
		prev = d
	}
	if prev != l.backoffMax {
		t.Errorf("expected a long outage to reach the cap, topped out at %v", prev)
	}
	if l.failures != 0 {
		t.Errorf("expected failure counter reset after recovery, got %d", l.failures)
	}
}

func TestStep_UnknownErrorStillBacksOff(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	flt := mocks.NewMockFilter(ctrl)
	surf := mocks.NewMockSurface(ctrl)

	src.EXPECT().NextFrame(gomock.Any()).Return(nil, errors.New("weird internal fault"))

	l, waits := newTestLoop(src, flt, surf)
	if err := l.step(context.Background()); err != nil {
		t.Fatalf("step must absorb unknown source errors, got %v", err)
	}
	if len(*waits) != 1 || (*waits)[0] != l.backoffBase {
		t.Errorf("expected one base-delay wait, got %v", *waits)
	}
}

func TestStep_FilterRejectionSkipsFrame(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	flt := mocks.NewMockFilter(ctrl)
	surf := mocks.NewMockSurface(ctrl)

	frame := testFrame(9)
	src.EXPECT().NextFrame(gomock.Any()).Return(frame, nil)
	flt.EXPECT().Apply(frame).
		Return(nil, fmt.Errorf("empty raster: %w", domain.ErrUnsupportedFormat))
	// No Present expectation: a rejected frame must never reach the surface.

	l, waits := newTestLoop(src, flt, surf)
	if err := l.step(context.Background()); err != nil {
		t.Fatalf("step: %v", err)
	}
	if len(*waits) != 0 {
		t.Errorf("a bad frame is not a stream failure, got waits %v", *waits)
	}
	if l.rendered != 0 {
		t.Errorf("expected 0 rendered frames, got %d", l.rendered)
	}
}

func TestStep_CancellationDuringBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	flt := mocks.NewMockFilter(ctrl)
	surf := mocks.NewMockSurface(ctrl)

	src.EXPECT().NextFrame(gomock.Any()).
		Return(nil, fmt.Errorf("pull: %w", domain.ErrStreamEnded))
	src.EXPECT().State().Return(domain.StateFailed)

	l, _ := newTestLoop(src, flt, surf)
	// Real interruptible wait with an hour-long delay; cancellation must
	// break out long before the timer fires.
	l.backoffBase = time.Hour
	l.backoffMax = time.Hour
	l.waitFn = waitInterruptible

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := l.step(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation took %v, expected prompt return", elapsed)
	}
}

func TestLoop_StartStop(t *testing.T) {
	ctrl := gomock.NewController(t)
	src := mocks.NewMockSource(ctrl)
	flt := mocks.NewMockFilter(ctrl)
	surf := mocks.NewMockSurface(ctrl)

	frame := testFrame(1)
	flt.EXPECT().Name().Return("posterize").AnyTimes()
	src.EXPECT().NextFrame(gomock.Any()).Return(frame, nil).AnyTimes()
	flt.EXPECT().Apply(frame).Return(frame, nil).AnyTimes()
	surf.EXPECT().Present(frame).AnyTimes()

	l, _ := newTestLoop(src, flt, surf)

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Second Start is a no-op, not a second goroutine.
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := l.Stop(stopCtx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
