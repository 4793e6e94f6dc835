package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/forecasthub/pkg/logger"
)

// accessLog feeds gorilla's Apache-style access lines into the logger.
type accessLog struct{ logger logger.Logger }

func (a accessLog) Write(p []byte) (int, error) {
	a.logger.Debug(context.Background(), "http access", logger.String("line", strings.TrimSpace(string(p))))
	return len(p), nil
}

// recoveryLogger reports recovered handler panics.
type recoveryLogger struct{ logger logger.Logger }

func (r recoveryLogger) Println(v ...interface{}) {
	r.logger.Error(context.Background(), "http handler panicked", logger.String("panic", strings.TrimSpace(fmt.Sprintln(v...))))
}
