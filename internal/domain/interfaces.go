package domain

import "context"

// Source defines the interface for opening and reading a network video feed.
// Implementations own their ConnectionState and an open network resource
// that must be released via Close.
//
//go:generate mockgen -destination=mocks/domain_mocks.go -package=mocks github.com/camkiosk/camkiosk/internal/domain Source,Filter,Surface
type Source interface {
	// Open connects to the feed. It fails with an error wrapping
	// ErrConnection when the URL is unreachable or the stream format is
	// unsupported.
	Open(ctx context.Context) error

	// NextFrame blocks until the next decoded frame is available.
	// On a disconnected or failed handle it attempts a reconnect before
	// failing. It fails with ErrStreamEnded when the remote closes and
	// with ErrDecode on a corrupt frame.
	NextFrame(ctx context.Context) (*Frame, error)

	// State returns the current connection state.
	State() ConnectionState

	// Close releases the network resource. Idempotent.
	Close() error
}

// Filter applies a deterministic image transformation to a frame.
// Apply is pure: identical input bytes and parameters produce identical
// output, dimensions and pixel format are preserved, and it fails only
// with ErrUnsupportedFormat on malformed input.
type Filter interface {
	// Name returns the filter's configured name.
	Name() string

	// Apply transforms the frame and returns the result.
	Apply(frame *Frame) (*Frame, error)
}

// Surface owns a full-screen rendering surface sized to the configured
// display dimensions.
type Surface interface {
	// Present blits the frame onto the surface, scaling to the surface
	// dimensions if mismatched. It never blocks longer than one frame
	// interval.
	Present(frame *Frame)

	// Run drives the render loop on the calling goroutine until the
	// context is cancelled. Must be called from the main goroutine.
	Run(ctx context.Context) error

	// Close releases the windowing resource. Must run on every exit path.
	Close() error
}
