// Package ws exposes the hub to browser observers over WebSocket.
package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/forecasthub/internal/adapters/mq/queue"
	"github.com/okian/forecasthub/pkg/logger"
)

// Conn is one observer socket. Frames are buffered in a bounded queue and
// written by a single pump goroutine; it satisfies registry.Conn.
type Conn struct {
	id     string
	ws     *websocket.Conn
	out    *queue.InMemoryQueue[[]byte]
	cfg    config
	logger logger.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(ws *websocket.Conn, cfg config, l logger.Logger) *Conn {
	return &Conn{
		id:     uuid.NewString(),
		ws:     ws,
		out:    queue.NewInMemoryQueue[[]byte](queue.WithCapacity(cfg.sendBuffer)),
		cfg:    cfg,
		logger: l,
		done:   make(chan struct{}),
	}
}

// ID returns the connection's unique id.
func (c *Conn) ID() string { return c.id }

// Send queues frame for writing, waiting for buffer space until ctx ends.
func (c *Conn) Send(ctx context.Context, frame []byte) error {
	if c.out.IsClosed() {
		return ErrClosed
	}
	if !c.out.EnqueueWait(ctx, frame) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("send to %s: %w", c.id, err)
		}
		return ErrClosed
	}
	return nil
}

// Close stops accepting frames. The write pump flushes what is queued,
// sends a close frame and closes the socket.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.out.Close()
	})
	return nil
}

// Done is closed once the socket has been torn down.
func (c *Conn) Done() <-chan struct{} { return c.done }

// writePump is the only goroutine that writes to the socket.
func (c *Conn) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.pingInterval())
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		close(c.done)
	}()

	frames := c.out.Dequeue()
	for {
		select {
		case frame, ok := <-frames:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.writeTimeout))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug(ctx, "write failed", logger.String("conn_id", c.id), logger.Error(err))
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		case <-ctx.Done():
			_ = c.Close()
			return
		}
	}
}

// readPump delivers inbound text frames to handle until the socket fails.
func (c *Conn) readPump(ctx context.Context, handle func(ctx context.Context, frame []byte)) {
	c.ws.SetReadLimit(c.cfg.maxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.pongTimeout))
	})

	for {
		kind, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug(ctx, "connection closed unexpectedly", logger.String("conn_id", c.id), logger.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.pongTimeout))
		if kind != websocket.TextMessage {
			continue
		}
		handle(ctx, frame)
	}
}
