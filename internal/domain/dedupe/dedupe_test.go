package dedupe_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	dedupe "github.com/okian/peerreview/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithExpectedSize(16))

			Convey("Then it should be empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording keys", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the key is new", func() {
				seen := d.SeenAndRecord(ctx, "2A - Watts, BriAri")

				Convey("Then it should return false and record the key", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key was already seen", func() {
				d.SeenAndRecord(ctx, "2A - Watts, BriAri")
				seen := d.SeenAndRecord(ctx, "2A - Watts, BriAri")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When a key function is configured", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithKeyFunc(strings.TrimSpace))
			d.SeenAndRecord(ctx, "2A - Lee, Sam")

			Convey("Then keys are compared after normalization", func() {
				So(d.SeenAndRecord(ctx, "  2A - Lee, Sam "), ShouldBeTrue)
			})
		})

		Convey("When used concurrently", func() {
			d := dedupe.NewInMemoryDeduper()
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, fmt.Sprintf("k-%d", i%10)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()

			Convey("Then each key is recorded exactly once", func() {
				So(fresh, ShouldEqual, 10)
				So(d.Size(), ShouldEqual, 10)
			})
		})
	})
}

type submission struct {
	who string
	at  time.Time
	tag string
}

func TestLatest(t *testing.T) {
	Convey("Given submissions with repeated submitters", t, func() {
		ctx := context.Background()
		base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		items := []submission{
			{who: "a", at: base, tag: "a-old"},
			{who: "b", at: base.Add(time.Hour), tag: "b-only"},
			{who: "a", at: base.Add(2 * time.Hour), tag: "a-new"},
			{who: "c", at: base, tag: "c-first"},
			{who: "c", at: base, tag: "c-second"},
		}

		kept, dropped := dedupe.Latest(ctx, dedupe.NewInMemoryDeduper(), items,
			func(s submission) string { return s.who },
			func(s submission) time.Time { return s.at })

		tags := make([]string, len(kept))
		for i, s := range kept {
			tags[i] = s.tag
		}

		Convey("Then the most recent submission per key survives", func() {
			So(dropped, ShouldEqual, 2)
			So(tags, ShouldContain, "a-new")
			So(tags, ShouldNotContain, "a-old")
			So(tags, ShouldContain, "b-only")
		})

		Convey("Then ties go to the later row", func() {
			So(tags, ShouldContain, "c-second")
			So(tags, ShouldNotContain, "c-first")
		})

		Convey("Then the result is ordered newest first", func() {
			So(tags[0], ShouldEqual, "a-new")
			So(tags[1], ShouldEqual, "b-only")
		})
	})
}
