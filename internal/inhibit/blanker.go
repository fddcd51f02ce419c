package inhibit

import (
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// BlankerCommand represents a detected screen-blanker control command.
type BlankerCommand struct {
	Name    string
	Binary  string
	OnArgs  []string // disable blanking while the kiosk runs
	OffArgs []string // restore blanking on shutdown
}

var (
	// Ordered list of blanker commands to try (highest priority first)
	blankerCommands = []BlankerCommand{
		// X11 DPMS and screensaver timer
		{Name: "xset", Binary: "xset", OnArgs: []string{"s", "off", "-dpms"}, OffArgs: []string{"s", "on", "+dpms"}},
		// Linux virtual console
		{Name: "setterm", Binary: "setterm", OnArgs: []string{"--blank", "0", "--powerdown", "0"}, OffArgs: []string{"--blank", "10", "--powerdown", "10"}},
	}
)

// detectBlanker picks the first available blanker command on this system.
func detectBlanker(logger *zap.Logger) BlankerCommand {
	for _, cmd := range blankerCommands {
		if commandExists(cmd.Binary) {
			logger.Debug("Screen blanker command detected",
				zap.String("name", cmd.Name),
				zap.String("binary", cmd.Binary))
			return cmd
		}
	}
	return BlankerCommand{} // No command found
}

// commandExists checks if a binary exists in PATH.
func commandExists(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

func runBlanker(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v: %w (output: %s)", binary, args, err, string(output))
	}
	return nil
}
