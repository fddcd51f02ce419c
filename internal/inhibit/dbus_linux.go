//go:build linux
// +build linux

package inhibit

import (
	"github.com/godbus/dbus/v5"
)

const (
	screenSaverName = "org.freedesktop.ScreenSaver"
	screenSaverPath = "/org/freedesktop/ScreenSaver"
	inhibitMethod   = "org.freedesktop.ScreenSaver.Inhibit"
	unInhibitMethod = "org.freedesktop.ScreenSaver.UnInhibit"
)

// StdDBusClient is the real implementation using godbus.
type StdDBusClient struct {
	conn *dbus.Conn
}

// NewClient creates a D-Bus client connected to the session bus.
func NewClient() (Client, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}
	return &StdDBusClient{conn: conn}, nil
}

// Inhibit asks the screensaver service to stay off.
func (c *StdDBusClient) Inhibit(app, reason string) (uint32, error) {
	var cookie uint32
	obj := c.conn.Object(screenSaverName, dbus.ObjectPath(screenSaverPath))
	err := obj.Call(inhibitMethod, 0, app, reason).Store(&cookie)
	return cookie, err
}

// UnInhibit releases a previously obtained cookie.
func (c *StdDBusClient) UnInhibit(cookie uint32) error {
	obj := c.conn.Object(screenSaverName, dbus.ObjectPath(screenSaverPath))
	return obj.Call(unInhibitMethod, 0, cookie).Err
}

// Close closes the D-Bus connection.
func (c *StdDBusClient) Close() error {
	return c.conn.Close()
}
