//go:build !linux
// +build !linux

package inhibit

import "fmt"

// NewClient returns an error on non-Linux platforms; the inhibitor then
// runs without screensaver suppression.
func NewClient() (Client, error) {
	return nil, fmt.Errorf("screensaver inhibition over D-Bus is only supported on Linux")
}
