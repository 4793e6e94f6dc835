package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/forecasthub/internal/domain/types"
)

// observer is one websocket client.
type observer struct {
	id   int
	conn *websocket.Conn
}

func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	}
	return base + "/ws"
}

func dialObserver(ctx context.Context, base string, id int) (*observer, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL(base), nil)
	if err != nil {
		return nil, fmt.Errorf("observer %d dial: %w", id, err)
	}
	return &observer{id: id, conn: conn}, nil
}

// next reads frames until one of msgType arrives or the deadline passes.
func (o *observer) next(msgType string, deadline time.Time) (types.Envelope, error) {
	_ = o.conn.SetReadDeadline(deadline)
	for {
		_, frame, err := o.conn.ReadMessage()
		if err != nil {
			return types.Envelope{}, fmt.Errorf("observer %d: %w: %v", o.id, ErrNoUpdate, err)
		}
		env, err := types.Decode(frame)
		if err != nil {
			continue
		}
		if env.Type == msgType {
			return env, nil
		}
	}
}

// awaitVersion waits for a forecast_update carrying at least version.
func (o *observer) awaitVersion(version uint64, deadline time.Time) (json.RawMessage, uint64, error) {
	for {
		env, err := o.next(types.TypeForecastUpdate, deadline)
		if err != nil {
			return nil, 0, err
		}
		var p types.ForecastPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, 0, fmt.Errorf("observer %d: %w", o.id, err)
		}
		if p.Version >= version {
			return env.Data, p.Version, nil
		}
	}
}

func (o *observer) close() {
	_ = o.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = o.conn.Close()
}
