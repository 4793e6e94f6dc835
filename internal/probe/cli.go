package probe

import (
	"fmt"
	"os"

	"github.com/okian/forecasthub/pkg/logger"
)

// SetupLogging initializes the logger for the probe.
func SetupLogging(verbose bool) error {
	if err := logger.Init(logger.WithFormat("text"), logger.WithOutput(os.Stdout)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Forecast Hub Probe
==================

Connects websocket observers to a running hub, submits one modification
batch and checks that every observer received the same forecast_update.

Usage:
  hubprobe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8567")
  -observers int
        Number of websocket observers (default 3)
  -timeout duration
        Per-step timeout (default 10s)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Exit status is non-zero when any observer misses or disagrees on the update.
`)
}
