package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/forecasthub/internal/probe"
)

// Default configuration constants.
const (
	defaultObservers    = 3
	defaultTimeout      = 10 * time.Second
	defaultProbeTimeout = 2 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8567", "Base URL of the service")
		observers = flag.Int("observers", defaultObservers, "Number of websocket observers")
		timeout   = flag.Duration("timeout", defaultTimeout, "Per-step timeout")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	if err := probe.SetupLogging(*verbose); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)
	defer cancel()

	config := &probe.Config{
		BaseURL:   *baseURL,
		Observers: *observers,
		Timeout:   *timeout,
		Verbose:   *verbose,
	}
	if _, err := probe.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
