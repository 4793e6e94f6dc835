package baseline

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestProfile(t *testing.T) {
	Convey("Given the noiseless profile", t, func() {
		// 2024-01-06 is a Saturday, 2024-01-08 a Monday.
		sat := func(h int) time.Time { return time.Date(2024, 1, 6, h, 0, 0, 0, time.UTC) }
		mon := func(h int) time.Time { return time.Date(2024, 1, 8, h, 0, 0, 0, time.UTC) }

		Convey("Rooms follow the weekend and weekday means at midnight", func() {
			r, _, _ := Profile(sat(0))
			So(r, ShouldAlmostEqual, 85.0, 1e-9)
			r, _, _ = Profile(mon(0))
			So(r, ShouldAlmostEqual, 70.0, 1e-9)
			r, _, _ = Profile(mon(6))
			So(r, ShouldAlmostEqual, 85.0, 1e-9)
		})

		Convey("Friday counts as weekend", func() {
			r, _, _ := Profile(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
			So(r, ShouldAlmostEqual, 85.0, 1e-9)
		})

		Convey("Cleaning peaks at checkout", func() {
			r, c, _ := Profile(mon(12))
			So(c, ShouldAlmostEqual, 80+r*0.8, 1e-9)
			r, c, _ = Profile(mon(19))
			So(c, ShouldAlmostEqual, 40+r*0.3, 1e-9)
			r, c, _ = Profile(mon(7))
			So(c, ShouldAlmostEqual, 20+r*0.1, 1e-9)
		})

		Convey("Security is higher at night and on weekends", func() {
			_, _, s := Profile(sat(23))
			So(s, ShouldEqual, 70.0)
			_, _, s = Profile(mon(3))
			So(s, ShouldEqual, 50.0)
			_, _, s = Profile(sat(12))
			So(s, ShouldEqual, 35.0)
			_, _, s = Profile(mon(12))
			So(s, ShouldEqual, 25.0)
		})
	})
}

func TestSyntheticGenerate(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		start := time.Date(2024, 1, 6, 0, 30, 0, 0, time.UTC)
		g := NewSynthetic(WithHorizon(48), WithStart(start), WithSeed(7))

		Convey("The timeline is valid and hour-aligned", func() {
			tl, err := g.Generate(context.Background())
			So(err, ShouldBeNil)
			So(len(tl), ShouldEqual, 48)
			So(tl.Validate(), ShouldBeNil)
			So(tl[0].Timestamp, ShouldEqual, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))
			for _, r := range tl {
				So(r.Cleaning, ShouldBeGreaterThanOrEqualTo, 0)
				So(r.Security, ShouldBeGreaterThanOrEqualTo, 0)
			}
		})

		Convey("The same seed reproduces the same timeline", func() {
			a, _ := NewSynthetic(WithHorizon(24), WithStart(start), WithSeed(42)).Generate(context.Background())
			b, _ := NewSynthetic(WithHorizon(24), WithStart(start), WithSeed(42)).Generate(context.Background())
			So(a, ShouldResemble, b)
		})
	})

	Convey("Without a start the timeline begins at the next full hour", t, func() {
		now := time.Date(2024, 3, 1, 9, 17, 0, 0, time.UTC)
		g := NewSynthetic(WithHorizon(3), WithClock(func() time.Time { return now }))
		tl, err := g.Generate(context.Background())
		So(err, ShouldBeNil)
		So(tl[0].Timestamp, ShouldEqual, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	})

	Convey("A cancelled context yields no baseline", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewSynthetic().Generate(ctx)
		So(err, ShouldNotBeNil)
	})
}
