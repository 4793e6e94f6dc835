package ws

import (
	"context"
	"encoding/json"
	"strings"

	"golang.org/x/time/rate"

	"github.com/okian/forecasthub/internal/domain/types"
	"github.com/okian/forecasthub/pkg/logger"
	"github.com/okian/forecasthub/pkg/metrics"
)

// session routes inbound messages from one socket.
type session struct {
	hub     Hub
	conn    *Conn
	limiter *rate.Limiter
	logger  logger.Logger
}

func newSession(hub Hub, conn *Conn, cfg config, l logger.Logger) *session {
	return &session{
		hub:     hub,
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(cfg.chatRate), cfg.chatBurst),
		logger:  l,
	}
}

func (s *session) handle(ctx context.Context, frame []byte) {
	env, err := types.Decode(frame)
	if err != nil {
		metrics.RecordInboundMessage("malformed")
		s.logger.Warn(ctx, "ignoring malformed message", logger.String("conn_id", s.conn.ID()), logger.Error(err))
		return
	}
	metrics.RecordInboundMessage(env.Type)

	switch env.Type {
	case types.TypeChatMessage:
		s.chat(ctx, env.Data)
	case types.TypeClearModifications:
		if _, err := s.hub.Reset(ctx); err != nil {
			s.logger.Warn(ctx, "reset failed", logger.String("conn_id", s.conn.ID()), logger.Error(err))
		}
	default:
		s.logger.Debug(ctx, "ignoring message", logger.String("type", env.Type))
	}
}

func (s *session) chat(ctx context.Context, data json.RawMessage) {
	if !s.limiter.Allow() {
		s.logger.Warn(ctx, "chat rate exceeded, dropping message", logger.String("conn_id", s.conn.ID()))
		return
	}
	var p types.ChatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn(ctx, "ignoring malformed chat message", logger.Error(err))
		return
	}
	msg := strings.TrimSpace(p.Message)
	if msg == "" {
		return
	}
	if err := s.hub.HandleChat(ctx, s.conn, msg); err != nil {
		s.logger.Warn(ctx, "chat handling failed", logger.String("conn_id", s.conn.ID()), logger.Error(err))
	}
}
