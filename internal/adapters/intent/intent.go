// Package intent turns free-text chat messages into forecast modifications
// by calling an external extraction service.
package intent

import (
	"context"

	"github.com/okian/forecasthub/internal/domain/model"
	"github.com/okian/forecasthub/internal/domain/modification"
)

// FallbackResponse is the reply used when no extraction is available.
const FallbackResponse = "I understand you're asking about resort operations. " +
	"Could you be more specific about what changes you'd like to make to the forecast?"

// Reply is the extractor's answer to one chat message.
type Reply struct {
	Response      string                 `json:"response"`
	Modifications []modification.Request `json:"modifications"`
}

// Extractor interprets a chat message against the current forecast.
type Extractor interface {
	Extract(ctx context.Context, message string, forecast model.Timeline) (Reply, error)
}

// Static always answers with the fallback reply and no modifications.
type Static struct{}

func (Static) Extract(context.Context, string, model.Timeline) (Reply, error) {
	return fallbackReply(), nil
}

func fallbackReply() Reply {
	return Reply{Response: FallbackResponse, Modifications: []modification.Request{}}
}
