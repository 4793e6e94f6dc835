package service

import (
	"context"
	"fmt"

	"github.com/okian/forecasthub/internal/adapters/registry"
	"github.com/okian/forecasthub/internal/domain/modification"
	"github.com/okian/forecasthub/internal/domain/types"
	"github.com/okian/forecasthub/pkg/logger"
	"github.com/okian/forecasthub/pkg/metrics"
)

// HandleChat interprets a chat message from sender. The extractor's reply
// goes back to sender as agent_response; any valid modifications it proposes
// are then applied as one batch and broadcast.
func (s *Service) HandleChat(ctx context.Context, sender registry.Conn, message string) error {
	snap := s.store.Snapshot(ctx)
	reply, err := s.extractor.Extract(ctx, message, snap.Forecast)
	if err != nil {
		return fmt.Errorf("extract intent: %w", err)
	}
	if reply.Modifications == nil {
		reply.Modifications = []modification.Request{}
	}

	frame, err := types.Encode(types.TypeAgentResponse, types.AgentResponsePayload{
		Response:      reply.Response,
		Modifications: reply.Modifications,
	})
	if err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	err = sender.Send(sendCtx, frame)
	cancel()
	if err != nil {
		s.logger.Warn(ctx, "agent response not delivered",
			logger.String("conn_id", sender.ID()),
			logger.Error(err),
		)
	}

	mods, _, rejected := modification.ParseAll(reply.Modifications)
	for _, r := range rejected {
		metrics.RecordModificationRejected(r.Reason)
		s.logger.Warn(ctx, "extracted modification rejected",
			logger.Int("index", r.Index),
			logger.String("reason", r.Reason),
			logger.String("message", r.Message),
		)
	}
	if len(mods) == 0 {
		return nil
	}
	_, err = s.ApplyModifications(ctx, mods)
	return err
}
