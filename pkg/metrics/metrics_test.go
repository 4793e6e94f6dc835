package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("hub"),
				WithHistogramBuckets([]float64{1, 10}),
				WithRefreshInterval(3*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its collectors are registered there", func() {
				So(manager, ShouldNotBeNil)
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)
				manager.resets.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_hub_resets_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("Store recorders update their collectors", func() {
			before := testutil.ToFloat64(globalManager.recordsChanged)
			RecordModificationApplied("rooms", "set", 24)
			So(testutil.ToFloat64(globalManager.recordsChanged)-before, ShouldEqual, 24.0)

			RecordModificationRejected("inverted_range")
			So(testutil.ToFloat64(globalManager.modificationsRejected.WithLabelValues("inverted_range")), ShouldBeGreaterThanOrEqualTo, 1.0)

			UpdateForecastState(7, 3)
			So(testutil.ToFloat64(globalManager.forecastVersion), ShouldEqual, 7.0)
			So(testutil.ToFloat64(globalManager.modificationLogLength), ShouldEqual, 3.0)
		})

		Convey("The global refresh interval drives periodic gauges", func() {
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})

		Convey("Fan-out recorders do not panic", func() {
			So(func() {
				RecordBroadcast("forecast_update", 1.5)
				RecordDeliveryFailure("timeout")
				UpdateActiveConnections(3)
				RecordConnectionEvent("join")
				UpdateCommandQueue(1, 64)
				RecordCommandLatency("apply", 0.4)
				RecordCommandDropped()
				RecordInboundMessage("chat_message")
				RecordUpstreamError("intent")
				RecordDuplicateRequest()
				RecordReset()
				RecordHTTPRequest("forecast", "GET", "200")
				RecordHTTPRequestDuration("forecast", "GET", "200", 2)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
			So(testutil.ToFloat64(globalManager.activeConnections), ShouldEqual, 3.0)
		})

		Convey("The custom registry exposes the hub namespace", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			hasHub := false
			for _, f := range families {
				if strings.HasPrefix(f.GetName(), "forecasthub_hub_") {
					hasHub = true
				}
			}
			So(hasHub, ShouldBeTrue)
		})
	})
}
