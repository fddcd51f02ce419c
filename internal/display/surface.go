// Package display owns the full-screen rendering surface. Frames are
// scaled to the configured dimensions on Present and blitted by an
// Ebitengine game loop; the loop keeps the last good frame on screen
// during stream outages and shows a placeholder card before the first
// frame arrives.
package display

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"

	"github.com/camkiosk/camkiosk/internal/domain"
)

const (
	windowTitle = "camkiosk"

	// Bounded retries on the display probe. A kiosk booting in parallel
	// with its display server may race the first probe.
	initAttempts = 3
	initRetryGap = 2 * time.Second
)

// Options configures the surface.
type Options struct {
	// Width is the surface width in pixels.
	Width int
	// Height is the surface height in pixels.
	Height int
	// Windowed disables fullscreen. Used for local debugging.
	Windowed bool
}

// EbitenSurface renders frames full-screen at a fixed logical size.
type EbitenSurface struct {
	logger *zap.Logger
	opts   Options

	mu    sync.Mutex
	frame *image.NRGBA // always exactly Width x Height
	tex   *ebiten.Image

	runCtx context.Context
	closed chan struct{}
	once   sync.Once
}

// New probes for a display device and builds the surface. It fails with
// an error wrapping ErrDisplayInit when no display is available after
// bounded retries.
func New(opts Options, logger *zap.Logger) (*EbitenSurface, error) {
	var lastErr error
	for attempt := 1; attempt <= initAttempts; attempt++ {
		if n := screenshot.NumActiveDisplays(); n > 0 {
			logger.Info("Display device found",
				zap.Int("displays", n),
				zap.Int("width", opts.Width),
				zap.Int("height", opts.Height))
			return newSurface(opts, logger), nil
		}
		lastErr = fmt.Errorf("%w: no active display device", domain.ErrDisplayInit)
		logger.Warn("No display device, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", initAttempts))
		if attempt < initAttempts {
			time.Sleep(initRetryGap)
		}
	}
	return nil, lastErr
}

// newSurface builds the surface without probing. Split out for tests.
func newSurface(opts Options, logger *zap.Logger) *EbitenSurface {
	return &EbitenSurface{
		logger: logger,
		opts:   opts,
		frame:  placeholderCard(opts.Width, opts.Height),
		closed: make(chan struct{}),
	}
}

// Present scales the frame to the exact surface dimensions and stores it
// for the next draw. It never blocks on rendering: the game loop picks up
// whatever frame is current. Empty frames are ignored, keeping the last
// good picture on screen through an outage.
func (s *EbitenSurface) Present(frame *domain.Frame) {
	if frame == nil || frame.Image == nil {
		return
	}
	scaled := fitToSurface(frame.Image, s.opts.Width, s.opts.Height)

	s.mu.Lock()
	s.frame = scaled
	s.mu.Unlock()
}

// Current returns the frame that will be drawn next.
func (s *EbitenSurface) Current() *image.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Run drives the render loop until the context is cancelled or Close is
// called. Must run on the main goroutine (windowing requirement).
func (s *EbitenSurface) Run(ctx context.Context) error {
	s.runCtx = ctx

	ebiten.SetWindowTitle(windowTitle)
	ebiten.SetWindowSize(s.opts.Width, s.opts.Height)
	ebiten.SetFullscreen(!s.opts.Windowed)
	ebiten.SetCursorMode(ebiten.CursorModeHidden)

	if err := ebiten.RunGame(s); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDisplayInit, err)
	}
	s.logger.Info("Render loop stopped")
	return nil
}

// Close releases the windowing resource by terminating the game loop.
// Idempotent; safe on every exit path.
func (s *EbitenSurface) Close() error {
	s.once.Do(func() {
		close(s.closed)
		s.logger.Info("Display surface closed")
	})
	return nil
}

// --- ebiten.Game interface ---

// Update ends the loop on shutdown; the kiosk takes no user input.
func (s *EbitenSurface) Update() error {
	select {
	case <-s.closed:
		return ebiten.Termination
	default:
	}
	if s.runCtx != nil {
		select {
		case <-s.runCtx.Done():
			return ebiten.Termination
		default:
		}
	}
	return nil
}

// Draw blits the current frame. The frame always matches the logical
// screen size, so no per-draw scaling happens here.
func (s *EbitenSurface) Draw(screen *ebiten.Image) {
	s.mu.Lock()
	frame := s.frame
	s.mu.Unlock()
	if frame == nil {
		return
	}

	if s.tex == nil ||
		s.tex.Bounds().Dx() != frame.Bounds().Dx() ||
		s.tex.Bounds().Dy() != frame.Bounds().Dy() {
		s.tex = ebiten.NewImage(frame.Bounds().Dx(), frame.Bounds().Dy())
	}
	// Camera frames are opaque, so straight NRGBA bytes equal the
	// premultiplied form WritePixels expects.
	s.tex.WritePixels(frame.Pix)
	screen.DrawImage(s.tex, nil)
}

// Layout pins the logical screen to the configured dimensions regardless
// of the physical display size.
func (s *EbitenSurface) Layout(outsideWidth, outsideHeight int) (int, int) {
	return s.opts.Width, s.opts.Height
}

// fitToSurface scales an image to exactly width x height, covering the
// whole surface and center-cropping any overflow.
func fitToSurface(img *image.NRGBA, width, height int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
}

var _ domain.Surface = (*EbitenSurface)(nil)
