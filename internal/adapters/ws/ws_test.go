package ws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/forecasthub/internal/adapters/registry"
	"github.com/okian/forecasthub/internal/adapters/ws"
	service "github.com/okian/forecasthub/internal/app"
	"github.com/okian/forecasthub/internal/domain/baseline"
	"github.com/okian/forecasthub/internal/domain/types"
	"github.com/okian/forecasthub/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeHub struct {
	mu     sync.Mutex
	chats  []string
	resets int
	left   chan string
	conns  []registry.Conn
}

func newFakeHub() *fakeHub { return &fakeHub{left: make(chan string, 8)} }

func (h *fakeHub) HandleJoin(ctx context.Context, conn registry.Conn) error {
	h.mu.Lock()
	h.conns = append(h.conns, conn)
	h.mu.Unlock()
	return conn.Send(ctx, []byte(`{"type":"initial_data","data":{}}`))
}

func (h *fakeHub) HandleLeave(_ context.Context, conn registry.Conn) {
	h.left <- conn.ID()
}

func (h *fakeHub) HandleChat(ctx context.Context, sender registry.Conn, message string) error {
	h.mu.Lock()
	h.chats = append(h.chats, message)
	h.mu.Unlock()
	frame, _ := types.Encode(types.TypeAgentResponse, types.AgentResponsePayload{Response: "ok:" + message})
	return sender.Send(ctx, frame)
}

func (h *fakeHub) Reset(context.Context) (types.Outcome, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resets++
	return types.Outcome{}, nil
}

func (h *fakeHub) chatCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.chats)
}

func (h *fakeHub) resetCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resets
}

func dial(url string, header http.Header) (*websocket.Conn, *http.Response, error) {
	return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), header)
}

func readType(c *websocket.Conn) string {
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := c.ReadMessage()
	if err != nil {
		return "error: " + err.Error()
	}
	env, err := types.Decode(frame)
	if err != nil {
		return "error: " + err.Error()
	}
	return env.Type
}

func TestHandler(t *testing.T) {
	Convey("Given a websocket endpoint over a fake hub", t, func() {
		hub := newFakeHub()
		srv := httptest.NewServer(ws.NewHandler(hub, ws.WithChatRate(0.001, 2)))
		defer srv.Close()

		c, _, err := dial(srv.URL, nil)
		So(err, ShouldBeNil)
		defer c.Close()

		Convey("The first frame is initial_data", func() {
			So(readType(c), ShouldEqual, types.TypeInitialData)
		})

		Convey("Chat messages reach the hub and the reply comes back", func() {
			So(readType(c), ShouldEqual, types.TypeInitialData)
			So(c.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat_message","data":{"message":"UFC fight"}}`)), ShouldBeNil)
			So(readType(c), ShouldEqual, types.TypeAgentResponse)
			So(hub.chatCount(), ShouldEqual, 1)
		})

		Convey("Chat beyond the burst is dropped", func() {
			So(readType(c), ShouldEqual, types.TypeInitialData)
			for i := 0; i < 4; i++ {
				So(c.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat_message","data":{"message":"again"}}`)), ShouldBeNil)
			}
			So(c.WriteMessage(websocket.TextMessage, []byte(`{"type":"clear_modifications","data":{}}`)), ShouldBeNil)
			So(readType(c), ShouldEqual, types.TypeAgentResponse)
			So(readType(c), ShouldEqual, types.TypeAgentResponse)
			time.Sleep(100 * time.Millisecond)
			So(hub.chatCount(), ShouldEqual, 2)
			So(hub.resetCount(), ShouldEqual, 1)
		})

		Convey("Malformed and unknown messages are ignored", func() {
			So(readType(c), ShouldEqual, types.TypeInitialData)
			So(c.WriteMessage(websocket.TextMessage, []byte(`not json`)), ShouldBeNil)
			So(c.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`)), ShouldBeNil)
			So(c.WriteMessage(websocket.TextMessage, []byte(`{"type":"clear_modifications"}`)), ShouldBeNil)
			time.Sleep(100 * time.Millisecond)
			So(hub.resetCount(), ShouldEqual, 1)
		})

		Convey("Disconnecting leaves the hub", func() {
			So(readType(c), ShouldEqual, types.TypeInitialData)
			_ = c.Close()
			select {
			case id := <-hub.left:
				So(id, ShouldNotBeEmpty)
			case <-time.After(2 * time.Second):
				So("leave not observed", ShouldBeEmpty)
			}
		})
	})

	Convey("Given an origin allow-list", t, func() {
		srv := httptest.NewServer(ws.NewHandler(newFakeHub(), ws.WithAllowedOrigins([]string{"http://ui.example"})))
		defer srv.Close()

		Convey("Foreign origins are refused", func() {
			_, resp, err := dial(srv.URL, http.Header{"Origin": {"http://evil.example"}})
			So(err, ShouldNotBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusForbidden)
		})

		Convey("Listed origins are accepted", func() {
			c, _, err := dial(srv.URL, http.Header{"Origin": {"http://ui.example"}})
			So(err, ShouldBeNil)
			_ = c.Close()
		})
	})
}

func TestConnSend(t *testing.T) {
	Convey("Given a server-side connection captured from the hub", t, func() {
		hub := newFakeHub()
		srv := httptest.NewServer(ws.NewHandler(hub, ws.WithSendBuffer(1)))
		defer srv.Close()

		c, _, err := dial(srv.URL, nil)
		So(err, ShouldBeNil)
		defer c.Close()
		So(readType(c), ShouldEqual, types.TypeInitialData)

		hub.mu.Lock()
		conn := hub.conns[0]
		hub.mu.Unlock()

		Convey("Sending after Close fails", func() {
			So(conn.Close(), ShouldBeNil)
			So(conn.Send(context.Background(), []byte(`{}`)), ShouldEqual, ws.ErrClosed)
		})
	})
}

func TestEndToEnd(t *testing.T) {
	Convey("Given a real hub behind the websocket endpoint", t, func() {
		ctx := context.Background()
		gen := baseline.NewSynthetic(baseline.WithHorizon(24), baseline.WithSeed(1),
			baseline.WithStart(time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)))
		hub := service.New(service.WithGenerator(gen))
		So(hub.Start(ctx), ShouldBeNil)
		defer hub.Stop(ctx)

		srv := httptest.NewServer(ws.NewHandler(hub))
		defer srv.Close()

		a, _, err := dial(srv.URL, nil)
		So(err, ShouldBeNil)
		defer a.Close()
		b, _, err := dial(srv.URL, nil)
		So(err, ShouldBeNil)
		defer b.Close()
		So(readType(a), ShouldEqual, types.TypeInitialData)
		So(readType(b), ShouldEqual, types.TypeInitialData)

		Convey("A clear from one observer updates both", func() {
			So(a.WriteMessage(websocket.TextMessage, []byte(`{"type":"clear_modifications","data":{}}`)), ShouldBeNil)
			So(readType(a), ShouldEqual, types.TypeForecastUpdate)
			So(readType(b), ShouldEqual, types.TypeForecastUpdate)
		})

		Convey("Chat without an extraction service answers only the sender", func() {
			So(a.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat_message","data":{"message":"pool party"}}`)), ShouldBeNil)
			So(readType(a), ShouldEqual, types.TypeAgentResponse)
			_ = b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
			_, _, err := b.ReadMessage()
			So(err, ShouldNotBeNil)
		})
	})
}
