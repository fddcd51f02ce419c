package domain

import (
	"image"
	"time"
)

// ConnectionState represents the current state of the stream source.
type ConnectionState int32

const (
	// StateDisconnected means no connection attempt has been made yet,
	// or the handle was explicitly closed.
	StateDisconnected ConnectionState = iota
	// StateConnecting means a connection attempt is in progress.
	StateConnecting
	// StateStreaming means the connection is open and at least one frame
	// has been received.
	StateStreaming
	// StateFailed means the last connection or read attempt failed.
	// Not terminal: the source retries from here.
	StateFailed
)

// String returns a human-readable state name for logging.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Frame is one decoded raster image pulled from the video stream.
// A Frame is exclusively owned by the pipeline stage currently holding it;
// ownership transfers stage to stage and no stage retains a Frame after
// handing it off, keeping memory bounded to one in-flight frame per stage.
type Frame struct {
	// Seq is a monotonic sequence number assigned by the source.
	Seq uint64
	// Timestamp is when the frame was decoded.
	Timestamp time.Time
	// Image holds the pixel data in NRGBA format.
	Image *image.NRGBA
}

// Width returns the frame width in pixels, or 0 for an empty frame.
func (f *Frame) Width() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Height returns the frame height in pixels, or 0 for an empty frame.
func (f *Frame) Height() int {
	if f == nil || f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dy()
}

// StreamConfig is the immutable per-process stream description.
type StreamConfig struct {
	// SourceURL is the camera feed URL.
	SourceURL string
	// TargetWidth is the display surface width in pixels.
	TargetWidth int
	// TargetHeight is the display surface height in pixels.
	TargetHeight int
}
