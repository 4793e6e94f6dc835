package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/okian/forecasthub/internal/adapters/registry"
	"github.com/okian/forecasthub/internal/domain/types"
	"github.com/okian/forecasthub/pkg/logger"
)

// Hub is what a socket session needs from the broadcast hub.
type Hub interface {
	HandleJoin(ctx context.Context, conn registry.Conn) error
	HandleLeave(ctx context.Context, conn registry.Conn)
	HandleChat(ctx context.Context, sender registry.Conn, message string) error
	Reset(ctx context.Context) (types.Outcome, error)
}

// Handler upgrades HTTP requests and runs one session per socket.
type Handler struct {
	hub      Hub
	cfg      config
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewHandler creates a websocket handler bound to hub.
func NewHandler(hub Hub, opts ...Option) *Handler {
	cfg := config{
		sendBuffer:      defaultSendBuffer,
		writeTimeout:    defaultWriteTimeout,
		pongTimeout:     defaultPongTimeout,
		maxMessageBytes: defaultMaxMessageBytes,
		chatRate:        defaultChatRate,
		chatBurst:       defaultChatBurst,
		allowedOrigins:  []string{"*"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("ws")
	}
	h := &Handler{hub: hub, cfg: cfg, logger: cfg.logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.cfg.allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// ServeHTTP handles GET /ws.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sock, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	conn := newConn(sock, h.cfg, h.logger)
	go conn.writePump(ctx)

	if err := h.hub.HandleJoin(ctx, conn); err != nil {
		h.logger.Warn(ctx, "join failed", logger.String("conn_id", conn.ID()), logger.Error(err))
		_ = conn.Close()
		<-conn.Done()
		return
	}

	s := newSession(h.hub, conn, h.cfg, h.logger)
	conn.readPump(ctx, s.handle)

	h.hub.HandleLeave(ctx, conn)
	_ = conn.Close()
	<-conn.Done()
}
