package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/peerreview/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore(t *testing.T) {
	Convey("Given a store with three teams", t, func() {
		ctx := context.Background()
		s := NewMemoryStore(WithExpectedTeams(3))
		So(s.Put(ctx, model.TeamReport{Team: "2B", Flagged: true, Flags: []string{"Negative profit ($-1.00)"}}), ShouldBeNil)
		So(s.Put(ctx, model.TeamReport{Team: "1A"}), ShouldBeNil)
		So(s.Put(ctx, model.TeamReport{Team: "3C", Flagged: true}), ShouldBeNil)

		Convey("Then List orders by team key", func() {
			all, err := s.List(ctx, false)
			So(err, ShouldBeNil)
			So(teams(all), ShouldResemble, []string{"1A", "2B", "3C"})
		})

		Convey("Then List can keep only flagged teams", func() {
			flagged, err := s.List(ctx, true)
			So(err, ShouldBeNil)
			So(teams(flagged), ShouldResemble, []string{"2B", "3C"})
		})

		Convey("When a team is stored again", func() {
			So(s.Put(ctx, model.TeamReport{Team: "2B"}), ShouldBeNil)

			Convey("Then it is replaced", func() {
				r, err := s.Get(ctx, "2B")
				So(err, ShouldBeNil)
				So(r.Flagged, ShouldBeFalse)
				So(s.Count(ctx), ShouldEqual, 3)
			})
		})

		Convey("Then an unknown team is not found", func() {
			_, err := s.Get(ctx, "9Z")
			So(errors.Is(err, ErrNotFound), ShouldBeTrue)
		})

		Convey("Then a report without a team is rejected", func() {
			So(errors.Is(s.Put(ctx, model.TeamReport{}), ErrEmptyTeam), ShouldBeTrue)
		})

		Convey("Then a cancelled context is honored", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(errors.Is(s.Put(cctx, model.TeamReport{Team: "4D"}), context.Canceled), ShouldBeTrue)
			_, err := s.List(cctx, false)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given concurrent writers", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = s.Put(ctx, model.TeamReport{Team: fmt.Sprintf("T%02d", i)})
			}(i)
		}
		wg.Wait()

		Convey("Then every report is kept", func() {
			So(s.Count(ctx), ShouldEqual, 50)
		})
	})
}

func teams(rs []model.TeamReport) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Team
	}
	return out
}
