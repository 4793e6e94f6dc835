package intent

import (
	"context"

	"github.com/okian/forecasthub/internal/domain/model"
	"github.com/okian/forecasthub/internal/domain/modification"
	"github.com/okian/forecasthub/pkg/logger"
	"github.com/okian/forecasthub/pkg/metrics"
)

// Fallback wraps an Extractor so that failures degrade to the canned reply.
type Fallback struct {
	next   Extractor
	logger logger.Logger
}

// NewFallback wraps next.
func NewFallback(next Extractor, l logger.Logger) *Fallback {
	if l == nil {
		l = logger.Get().Named("intent")
	}
	return &Fallback{next: next, logger: l}
}

func (f *Fallback) Extract(ctx context.Context, message string, forecast model.Timeline) (Reply, error) {
	reply, err := f.next.Extract(ctx, message, forecast)
	if err != nil {
		metrics.RecordUpstreamError("intent")
		f.logger.Warn(ctx, "intent extraction failed, using fallback", logger.Error(err))
		return fallbackReply(), nil
	}
	if reply.Modifications == nil {
		reply.Modifications = []modification.Request{}
	}
	return reply, nil
}
