// Package inhibit keeps the display awake while the kiosk is showing the
// feed. It talks to the desktop screensaver over D-Bus when available and
// falls back to a detected screen-blanker command otherwise. Inhibition is
// best effort: a kiosk without it still renders, so nothing here is fatal.
package inhibit

// Client defines the screensaver operations we need from the session bus.
// This abstraction allows us to fake D-Bus interactions in tests.
type Client interface {
	// Inhibit asks the screensaver to stay off and returns a cookie that
	// identifies the request.
	Inhibit(app, reason string) (uint32, error)

	// UnInhibit releases a previously obtained cookie.
	UnInhibit(cookie uint32) error

	// Close closes the D-Bus connection.
	Close() error
}
