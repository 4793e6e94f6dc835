package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/forecasthub/internal/adapters/http/api"
	"github.com/okian/forecasthub/internal/adapters/ws"
	service "github.com/okian/forecasthub/internal/app"
	"github.com/okian/forecasthub/internal/domain/baseline"
	"github.com/okian/forecasthub/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newStack(ctx context.Context) (*service.Service, *httptest.Server) {
	gen := baseline.NewSynthetic(baseline.WithHorizon(48), baseline.WithSeed(3),
		baseline.WithStart(time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)))
	hub := service.New(service.WithGenerator(gen))
	So(hub.Start(ctx), ShouldBeNil)

	server := api.NewServer(hub, hub, api.WithWebSocket(ws.NewHandler(hub)))
	mux := http.NewServeMux()
	server.Register(mux)
	return hub, httptest.NewServer(server.Handler(mux))
}

func TestRun(t *testing.T) {
	Convey("Given a running hub", t, func() {
		ctx := context.Background()
		hub, srv := newStack(ctx)
		defer srv.Close()
		defer hub.Stop(ctx)

		Convey("When the probe runs with three observers", func() {
			stats, err := Run(ctx, &Config{BaseURL: srv.URL, Observers: 3, Timeout: 5 * time.Second})

			Convey("Then every observer saw the same update", func() {
				So(err, ShouldBeNil)
				So(stats.Identical, ShouldBeTrue)
				So(stats.DuplicateHonour, ShouldBeTrue)
				So(stats.UpdatedVersion, ShouldEqual, stats.InitialVersion+1)
				So(stats.RecordsChanged, ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given an unhealthy service", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := Run(context.Background(), &Config{BaseURL: srv.URL, Observers: 1, Timeout: time.Second})
		So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
	})
}

func TestWSURL(t *testing.T) {
	Convey("wsURL swaps the scheme and appends the path", t, func() {
		So(wsURL("http://localhost:8567"), ShouldEqual, "ws://localhost:8567/ws")
		So(wsURL("https://hub.example"), ShouldEqual, "wss://hub.example/ws")
	})
}
