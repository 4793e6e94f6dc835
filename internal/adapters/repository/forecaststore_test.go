package repository_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/okian/forecasthub/internal/adapters/repository"
	"github.com/okian/forecasthub/internal/domain/model"
	"github.com/okian/forecasthub/internal/domain/modification"
	"github.com/okian/forecasthub/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var weekStart = time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)

func baseline() model.Timeline {
	tl := make(model.Timeline, 72)
	for i := range tl {
		tl[i] = model.HourlyRecord{
			Timestamp: weekStart.Add(time.Duration(i) * time.Hour),
			Rooms:     70,
			Cleaning:  40,
			Security:  20,
		}
	}
	return tl
}

func edit(metric model.Metric, e model.EditType, v float64, start, end string) model.Modification {
	return model.Modification{Metric: metric, EditType: e, Value: v, StartDate: model.MustDate(start), EndDate: model.MustDate(end)}
}

func TestForecastStore_Initialize(t *testing.T) {
	Convey("Given a new store", t, func() {
		ctx := context.Background()
		s := repository.NewForecastStore()

		Convey("The empty store snapshots cleanly", func() {
			snap := s.Snapshot(ctx)
			So(len(snap.Forecast), ShouldEqual, 0)
			So(len(snap.Modifications), ShouldEqual, 0)
		})

		Convey("When initialized with a valid baseline", func() {
			So(s.Initialize(ctx, baseline()), ShouldBeNil)

			Convey("Then the snapshot reflects it", func() {
				snap := s.Snapshot(ctx)
				So(snap.Forecast, ShouldResemble, baseline())
				So(snap.Version, ShouldEqual, 1)
			})
		})

		Convey("When initialized with a broken baseline", func() {
			So(s.Initialize(ctx, baseline()), ShouldBeNil)
			bad := baseline()
			bad[3].Rooms = 150
			err := s.Initialize(ctx, bad)

			Convey("Then it is refused and the previous state stays", func() {
				So(errors.Is(err, repository.ErrInvalidBaseline), ShouldBeTrue)
				So(s.Snapshot(ctx).Forecast[3].Rooms, ShouldEqual, 70.0)
				So(s.Version(ctx), ShouldEqual, 1)
			})
		})

		Convey("The caller's baseline slice is not aliased", func() {
			b := baseline()
			So(s.Initialize(ctx, b), ShouldBeNil)
			b[0].Rooms = 1
			So(s.Snapshot(ctx).Forecast[0].Rooms, ShouldEqual, 70.0)
		})
	})
}

func TestForecastStore_Apply(t *testing.T) {
	Convey("Given an initialized store", t, func() {
		ctx := context.Background()
		s := repository.NewForecastStore()
		So(s.Initialize(ctx, baseline()), ShouldBeNil)

		Convey("Set then percentage on 2024-01-06 clamps rooms at 99", func() {
			n, err := s.Apply(ctx, edit(model.MetricRooms, model.EditSet, 95, "2024-01-06", "2024-01-06"))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 24)
			So(s.Snapshot(ctx).Forecast[20].Rooms, ShouldEqual, 95.0)

			_, err = s.Apply(ctx, edit(model.MetricRooms, model.EditPercentage, 10, "2024-01-06", "2024-01-06"))
			So(err, ShouldBeNil)
			snap := s.Snapshot(ctx)
			So(snap.Forecast[20].Rooms, ShouldEqual, 99.0)
			So(snap.Forecast[24].Rooms, ShouldEqual, 70.0)
			So(len(snap.Modifications), ShouldEqual, 2)
			So(snap.Modifications[0].EditType, ShouldEqual, model.EditSet)
		})

		Convey("Absolute -100 on cleaning never goes negative", func() {
			_, err := s.Apply(ctx, edit(model.MetricCleaning, model.EditAbsolute, -100, "2024-01-07", "2024-01-07"))
			So(err, ShouldBeNil)
			So(s.Snapshot(ctx).Forecast[30].Cleaning, ShouldEqual, 0)
		})

		Convey("Huge finite values keep staffing counts non-negative", func() {
			_, err := s.Apply(ctx, edit(model.MetricCleaning, model.EditSet, 1e19, "2024-01-06", "2024-01-06"))
			So(err, ShouldBeNil)
			_, err = s.Apply(ctx, edit(model.MetricSecurity, model.EditPercentage, 1e308, "2024-01-06", "2024-01-06"))
			So(err, ShouldBeNil)
			_, err = s.Apply(ctx, edit(model.MetricSecurity, model.EditAbsolute, math.MaxFloat64, "2024-01-07", "2024-01-07"))
			So(err, ShouldBeNil)

			snap := s.Snapshot(ctx)
			So(snap.Forecast[3].Cleaning, ShouldEqual, model.MaxCount)
			So(snap.Forecast[3].Security, ShouldEqual, model.MaxCount)
			So(snap.Forecast[30].Security, ShouldEqual, model.MaxCount)
			So(snap.Forecast.Validate(), ShouldBeNil)

			_, err = s.Apply(ctx, edit(model.MetricCleaning, model.EditAbsolute, -math.MaxFloat64, "2024-01-06", "2024-01-06"))
			So(err, ShouldBeNil)
			So(s.Snapshot(ctx).Forecast[3].Cleaning, ShouldEqual, 0)
		})

		Convey("A range outside the timeline is logged with zero changes", func() {
			n, err := s.Apply(ctx, edit(model.MetricSecurity, model.EditAbsolute, 5, "2030-01-01", "2030-01-31"))
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
			So(len(s.Snapshot(ctx).Modifications), ShouldEqual, 1)
		})

		Convey("An invalid modification changes nothing", func() {
			before := s.Snapshot(ctx)
			_, err := s.Apply(ctx, edit(model.MetricRooms, model.EditSet, math.NaN(), "2024-01-06", "2024-01-06"))
			So(modification.ReasonOf(err), ShouldEqual, modification.ReasonNonFiniteValue)
			after := s.Snapshot(ctx)
			So(after.Forecast, ShouldResemble, before.Forecast)
			So(len(after.Modifications), ShouldEqual, 0)
			So(after.Version, ShouldEqual, before.Version)
		})

		Convey("Snapshots do not observe later mutations", func() {
			snap := s.Snapshot(ctx)
			_, _ = s.Apply(ctx, edit(model.MetricRooms, model.EditSet, 10, "2024-01-06", "2024-01-08"))
			So(snap.Forecast[0].Rooms, ShouldEqual, 70.0)
			So(len(snap.Modifications), ShouldEqual, 0)
		})

		Convey("Concurrent percentage edits never lose an update", func() {
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = s.Apply(ctx, edit(model.MetricCleaning, model.EditAbsolute, 1, "2024-01-08", "2024-01-08"))
				}()
			}
			wg.Wait()
			So(s.Snapshot(ctx).Forecast[50].Cleaning, ShouldEqual, 50)
			So(len(s.Snapshot(ctx).Modifications), ShouldEqual, 10)
		})

		Convey("Reset restores the baseline and clears the log", func() {
			_, _ = s.Apply(ctx, edit(model.MetricRooms, model.EditSet, 10, "2024-01-06", "2024-01-08"))
			So(s.Reset(ctx, baseline()), ShouldBeNil)
			snap := s.Snapshot(ctx)
			So(snap.Forecast, ShouldResemble, baseline())
			So(len(snap.Modifications), ShouldEqual, 0)
			So(snap.Version, ShouldEqual, 3)
		})
	})
}

func TestForecastStore_Clock(t *testing.T) {
	Convey("Given a store with a fixed clock", t, func() {
		fixed := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
		s := repository.NewForecastStore(repository.WithClock(func() time.Time { return fixed }))
		So(s.Snapshot(context.Background()).TakenAt, ShouldEqual, fixed)
	})
}
