package modification_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/forecasthub/internal/domain/model"
	"github.com/okian/forecasthub/internal/domain/modification"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr(v float64) *float64 { return &v }

// day builds 24 hourly records for the given date with uniform values.
func day(date string, rooms float64, cleaning, security int) model.Timeline {
	start, _ := time.Parse(model.DateLayout, date)
	out := make(model.Timeline, 24)
	for h := range out {
		out[h] = model.HourlyRecord{
			Timestamp: start.Add(time.Duration(h) * time.Hour),
			Rooms:     rooms,
			Cleaning:  cleaning,
			Security:  security,
		}
	}
	return out
}

func mod(metric model.Metric, edit model.EditType, v float64, start, end string) model.Modification {
	return model.Modification{
		Metric:    metric,
		EditType:  edit,
		Value:     v,
		StartDate: model.MustDate(start),
		EndDate:   model.MustDate(end),
	}
}

func TestCompute(t *testing.T) {
	Convey("Given the edit type semantics", t, func() {
		So(modification.Compute(model.EditPercentage, 80, 10), ShouldAlmostEqual, 88.0, 1e-9)
		So(modification.Compute(model.EditPercentage, 80, -50), ShouldAlmostEqual, 40.0, 1e-9)
		So(modification.Compute(model.EditAbsolute, 40, -15), ShouldEqual, 25.0)
		So(modification.Compute(model.EditSet, 40, 12), ShouldEqual, 12.0)
	})
}

func TestClamp(t *testing.T) {
	Convey("Given the clamp policy", t, func() {
		Convey("Rooms are bounded to [0, 99]", func() {
			So(modification.Clamp(model.MetricRooms, 104.5), ShouldEqual, 99.0)
			So(modification.Clamp(model.MetricRooms, -3), ShouldEqual, 0.0)
			So(modification.Clamp(model.MetricRooms, 55.5), ShouldEqual, 55.5)
		})

		Convey("Staffing counts are bounded to [0, MaxCount]", func() {
			So(modification.Clamp(model.MetricCleaning, -60), ShouldEqual, 0.0)
			So(modification.Clamp(model.MetricSecurity, 1e6), ShouldEqual, 1e6)
			So(modification.Clamp(model.MetricSecurity, 1e19), ShouldEqual, float64(model.MaxCount))
			So(modification.Clamp(model.MetricCleaning, math.Inf(1)), ShouldEqual, float64(model.MaxCount))
		})

		Convey("Storing huge or unbounded counts saturates instead of wrapping", func() {
			var rec model.HourlyRecord
			rec.Set(model.MetricCleaning, 1e19)
			So(rec.Cleaning, ShouldEqual, model.MaxCount)
			rec.Set(model.MetricSecurity, math.Inf(1))
			So(rec.Security, ShouldEqual, model.MaxCount)
			rec.Set(model.MetricSecurity, math.Inf(-1))
			So(rec.Security, ShouldEqual, 0)
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given a timeline spanning two days", t, func() {
		tl := append(day("2024-01-06", 70, 40, 20), day("2024-01-07", 60, 30, 10)...)

		Convey("When a percentage edit targets the first day", func() {
			n := modification.Apply(tl, mod(model.MetricRooms, model.EditPercentage, 10, "2024-01-06", "2024-01-06"))

			Convey("Then only that day's records change, by the clamped factor", func() {
				So(n, ShouldEqual, 24)
				So(tl[0].Rooms, ShouldAlmostEqual, 77.0, 1e-9)
				So(tl[23].Rooms, ShouldAlmostEqual, 77.0, 1e-9)
				So(tl[24].Rooms, ShouldEqual, 60.0)
			})
		})

		Convey("When the same percentage edit is applied twice", func() {
			m := mod(model.MetricRooms, model.EditPercentage, 10, "2024-01-07", "2024-01-07")
			modification.Apply(tl, m)
			modification.Apply(tl, m)

			Convey("Then the effect compounds on the edited value", func() {
				So(tl[30].Rooms, ShouldAlmostEqual, 60*1.1*1.1, 1e-9)
			})
		})

		Convey("When rooms are set and then raised past the ceiling", func() {
			modification.Apply(tl, mod(model.MetricRooms, model.EditSet, 95, "2024-01-06", "2024-01-06"))
			So(tl[20].Rooms, ShouldEqual, 95.0)
			modification.Apply(tl, mod(model.MetricRooms, model.EditPercentage, 10, "2024-01-06", "2024-01-06"))

			Convey("Then the value is clamped at 99", func() {
				So(tl[20].Rooms, ShouldEqual, 99.0)
			})
		})

		Convey("When an absolute edit would drive cleaning negative", func() {
			modification.Apply(tl, mod(model.MetricCleaning, model.EditAbsolute, -100, "2024-01-06", "2024-01-07"))

			Convey("Then cleaning is clamped at zero", func() {
				So(tl[5].Cleaning, ShouldEqual, 0)
				So(tl[40].Cleaning, ShouldEqual, 0)
			})
		})

		Convey("When a percentage edit produces a fractional staff count", func() {
			modification.Apply(tl, mod(model.MetricSecurity, model.EditPercentage, 33, "2024-01-07", "2024-01-07"))

			Convey("Then the count is truncated toward zero", func() {
				So(tl[24].Security, ShouldEqual, 13)
			})
		})

		Convey("When the range does not intersect the timeline", func() {
			n := modification.Apply(tl, mod(model.MetricRooms, model.EditSet, 10, "2025-03-01", "2025-03-02"))

			Convey("Then nothing changes", func() {
				So(n, ShouldEqual, 0)
				So(tl[0].Rooms, ShouldEqual, 70.0)
			})
		})

		Convey("When a set edit writes the value already stored", func() {
			n := modification.Apply(tl, mod(model.MetricSecurity, model.EditSet, 20, "2024-01-06", "2024-01-07"))

			Convey("Then only records that differed are counted", func() {
				So(n, ShouldEqual, 24)
			})
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given typed modifications", t, func() {
		Convey("A well-formed modification passes", func() {
			So(modification.Validate(mod(model.MetricRooms, model.EditSet, 1, "2024-01-01", "2024-01-01")), ShouldBeNil)
		})

		Convey("An inverted range is rejected", func() {
			err := modification.Validate(mod(model.MetricRooms, model.EditSet, 1, "2024-01-02", "2024-01-01"))
			So(errors.Is(err, modification.ErrInvertedRange), ShouldBeTrue)
			So(modification.ReasonOf(err), ShouldEqual, modification.ReasonInvertedRange)
		})

		Convey("A non-finite value is rejected", func() {
			err := modification.Validate(mod(model.MetricRooms, model.EditSet, math.NaN(), "2024-01-01", "2024-01-01"))
			So(errors.Is(err, modification.ErrNonFiniteValue), ShouldBeTrue)
			err = modification.Validate(mod(model.MetricRooms, model.EditSet, math.Inf(1), "2024-01-01", "2024-01-01"))
			So(modification.ReasonOf(err), ShouldEqual, modification.ReasonNonFiniteValue)
		})

		Convey("Unknown metric and edit type are rejected", func() {
			err := modification.Validate(mod("pool", model.EditSet, 1, "2024-01-01", "2024-01-01"))
			So(errors.Is(err, modification.ErrUnknownMetric), ShouldBeTrue)
			err = modification.Validate(mod(model.MetricRooms, "multiply", 1, "2024-01-01", "2024-01-01"))
			So(errors.Is(err, modification.ErrUnknownEditType), ShouldBeTrue)
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given wire requests", t, func() {
		Convey("When the collaborator uses the material and type aliases", func() {
			m, err := modification.Parse(modification.Request{
				Material:  "Security",
				Type:      "percentage",
				Value:     ptr(40),
				StartDate: "2024-01-06",
				EndDate:   "2024-01-07",
				Reason:    "fight night",
			})

			Convey("Then they are folded into the canonical fields", func() {
				So(err, ShouldBeNil)
				So(m.Metric, ShouldEqual, model.MetricSecurity)
				So(m.EditType, ShouldEqual, model.EditPercentage)
				So(m.Value, ShouldEqual, 40.0)
				So(m.EndDate, ShouldResemble, model.MustDate("2024-01-07"))
				So(m.Reason, ShouldEqual, "fight night")
			})
		})

		Convey("When the metric is unknown", func() {
			_, err := modification.Parse(modification.Request{Metric: "spa", EditType: "set", Value: ptr(1), StartDate: "2024-01-01", EndDate: "2024-01-01"})
			So(modification.ReasonOf(err), ShouldEqual, modification.ReasonUnknownMetric)
		})

		Convey("When the edit type is unknown", func() {
			_, err := modification.Parse(modification.Request{Metric: "rooms", EditType: "double", Value: ptr(1), StartDate: "2024-01-01", EndDate: "2024-01-01"})
			So(modification.ReasonOf(err), ShouldEqual, modification.ReasonUnknownEditType)
		})

		Convey("When the date is malformed", func() {
			_, err := modification.Parse(modification.Request{Metric: "rooms", EditType: "set", Value: ptr(1), StartDate: "01/06/2024", EndDate: "2024-01-06"})
			So(modification.ReasonOf(err), ShouldEqual, modification.ReasonInvalidDate)
		})

		Convey("When the value is missing", func() {
			_, err := modification.Parse(modification.Request{Metric: "rooms", EditType: "set", StartDate: "2024-01-01", EndDate: "2024-01-01"})
			So(errors.Is(err, modification.ErrInvalidPayload), ShouldBeTrue)
		})

		Convey("When a batch mixes valid and invalid requests", func() {
			mods, idx, rejected := modification.ParseAll([]modification.Request{
				{Metric: "rooms", EditType: "set", Value: ptr(90), StartDate: "2024-01-01", EndDate: "2024-01-01"},
				{Metric: "rooms", EditType: "set", Value: ptr(90), StartDate: "2024-01-03", EndDate: "2024-01-01"},
				{Metric: "cleaning", EditType: "absolute", Value: ptr(5), StartDate: "2024-01-01", EndDate: "2024-01-02"},
			})

			Convey("Then valid ones keep their order and the invalid one is reported", func() {
				So(len(mods), ShouldEqual, 2)
				So(idx, ShouldResemble, []int{0, 2})
				So(len(rejected), ShouldEqual, 1)
				So(rejected[0].Index, ShouldEqual, 1)
				So(rejected[0].Reason, ShouldEqual, modification.ReasonInvertedRange)
			})
		})

		Convey("ToRequest round-trips through Parse", func() {
			orig := mod(model.MetricCleaning, model.EditAbsolute, -4, "2024-02-01", "2024-02-03")
			back, err := modification.Parse(modification.ToRequest(orig))
			So(err, ShouldBeNil)
			So(back, ShouldResemble, orig)
		})
	})
}
