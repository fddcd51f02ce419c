package domain

import "errors"

// Error taxonomy. Connection, stream-end and decode errors are recoverable
// and retried with backoff; unsupported-format errors skip the frame;
// configuration and display-init errors are fatal.
var (
	// ErrConfig marks invalid or missing configuration. Fatal at startup.
	ErrConfig = errors.New("configuration error")

	// ErrConnection marks an unreachable camera URL or an unsupported
	// stream format at connect time.
	ErrConnection = errors.New("connection error")

	// ErrStreamEnded marks the remote stream closing mid-read.
	ErrStreamEnded = errors.New("stream ended")

	// ErrDecode marks a corrupt frame. The cycle yields no frame rather
	// than a partially decoded one.
	ErrDecode = errors.New("frame decode error")

	// ErrUnsupportedFormat marks a frame the filter cannot process.
	ErrUnsupportedFormat = errors.New("unsupported frame format")

	// ErrDisplayInit marks a missing display device or windowing resource.
	ErrDisplayInit = errors.New("display init error")
)

// IsRecoverable reports whether err should be retried with backoff
// instead of terminating the process.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrConnection) ||
		errors.Is(err, ErrStreamEnded) ||
		errors.Is(err, ErrDecode)
}
