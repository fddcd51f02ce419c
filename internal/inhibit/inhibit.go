package inhibit

import (
	"context"

	"go.uber.org/zap"
)

const (
	appName       = "camkiosk"
	inhibitReason = "displaying live camera feed"
)

// Inhibitor suppresses screen blanking for the lifetime of the kiosk.
// Every failure is logged and swallowed: losing inhibition degrades the
// kiosk, it does not stop it.
type Inhibitor struct {
	logger   *zap.Logger
	client   Client
	fallback BlankerCommand

	cookie    uint32
	inhibited bool
	blanked   bool
}

// NewInhibitor connects to the session bus when possible and otherwise
// detects a blanker command to shell out to. It never fails.
func NewInhibitor(logger *zap.Logger) *Inhibitor {
	i := &Inhibitor{logger: logger}

	client, err := NewClient()
	if err != nil {
		logger.Warn("Screensaver D-Bus service unavailable, trying command fallback",
			zap.Error(err))
		i.fallback = detectBlanker(logger)
		if i.fallback.Binary == "" {
			logger.Warn("No screen blanker control found, display may sleep")
		}
		return i
	}

	i.client = client
	return i
}

// Start acquires the inhibition. Failures are downgraded to warnings.
func (i *Inhibitor) Start(ctx context.Context) error {
	if i.client != nil {
		cookie, err := i.client.Inhibit(appName, inhibitReason)
		if err != nil {
			i.logger.Warn("Screensaver inhibit call failed", zap.Error(err))
			return nil
		}
		i.cookie = cookie
		i.inhibited = true
		i.logger.Info("Screensaver inhibited", zap.Uint32("cookie", cookie))
		return nil
	}

	if i.fallback.Binary != "" {
		if err := runBlanker(ctx, i.fallback.Binary, i.fallback.OnArgs); err != nil {
			i.logger.Warn("Screen blanker command failed", zap.Error(err))
			return nil
		}
		i.blanked = true
		i.logger.Info("Screen blanking disabled", zap.String("command", i.fallback.Name))
	}
	return nil
}

// Stop releases the inhibition and closes the bus connection.
func (i *Inhibitor) Stop(ctx context.Context) error {
	if i.client != nil {
		if i.inhibited {
			if err := i.client.UnInhibit(i.cookie); err != nil {
				i.logger.Warn("Screensaver uninhibit call failed", zap.Error(err))
			}
			i.inhibited = false
		}
		if err := i.client.Close(); err != nil {
			i.logger.Warn("Closing D-Bus connection failed", zap.Error(err))
		}
		return nil
	}

	if i.blanked {
		if err := runBlanker(ctx, i.fallback.Binary, i.fallback.OffArgs); err != nil {
			i.logger.Warn("Restoring screen blanking failed", zap.Error(err))
		}
		i.blanked = false
	}
	return nil
}
