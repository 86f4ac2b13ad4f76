package render_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/peerreview/internal/adapters/render"
	"github.com/okian/peerreview/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleReport() *model.Report {
	profit := -12.5
	income := 20.0
	bob := model.RosterEntry{ID: "2A - Jones, Bob", FirstName: "Bob", LastName: "Jones", Team: "2A", Period: "1"}
	return &model.Report{
		RunID:             "run-1",
		GeneratedAt:       time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
		VarianceThreshold: 15,
		Totals:            model.Totals{Teams: 2, Flagged: 1, Submissions: 3, Missing: 1, Students: 4, WithFinancials: 1},
		Teams: []model.TeamReport{
			{Team: "1B"},
			{
				Team:        "2A",
				Flagged:     true,
				Flags:       []string{"Negative profit ($-12.50)"},
				MaxVariance: 30,
				Financials:  &model.TeamFinancials{Team: "2A", Profit: &profit},
				Students: []model.StudentSummary{
					{Student: "2A - Smith, Alice", Name: "Smith, Alice", Ratings: 2, Average: 55, Variance: 30, Submitted: true},
					{Student: "2A - Jones, Bob", Name: "Jones, Bob", Ratings: 2, Average: 45, Income: &income, LowSeller: true},
				},
				Evaluations: []model.Evaluation{{
					Submitter:  "2A - Smith, Alice",
					PhotoURLs:  []string{"https://drive.google.com/open?id=abc123"},
					Thumbnails: []string{"https://drive.google.com/thumbnail?id=abc123&sz=w400"},
				}},
			},
		},
		Missing:         []model.RosterEntry{bob},
		MissingByPeriod: []model.PeriodGroup{{Period: "1", Students: []model.RosterEntry{bob}}},
		Warnings:        []string{"could not process 3C-notes.txt: unsupported file format"},
	}
}

func TestWriteText(t *testing.T) {
	Convey("Given a report with a flagged team", t, func() {
		var buf bytes.Buffer
		err := render.Write(&buf, sampleReport(), render.FormatText)
		out := buf.String()

		Convey("Then the summary is plain text with every section", func() {
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "Peer Review Report")
			So(out, ShouldContainSubstring, "Teams: 2  Flagged: 1  Submissions: 3  Missing: 1  Students: 4  With financials: 1")
			So(out, ShouldContainSubstring, "! could not process 3C-notes.txt")
			So(out, ShouldContainSubstring, "Period 1 (1): 2A - Jones, Bob")
			So(out, ShouldContainSubstring, "[OK] 1B")
			So(out, ShouldContainSubstring, "[FLAGGED] 2A")
			So(out, ShouldContainSubstring, "  - Negative profit ($-12.50)")
			So(out, ShouldContainSubstring, "Profit: $-12.50")
			So(out, ShouldContainSubstring, "Jones, Bob *")
			So(out, ShouldContainSubstring, "$20.00")
			So(out, ShouldContainSubstring, "Photos from Smith, Alice:")
			So(out, ShouldContainSubstring, "https://drive.google.com/thumbnail?id=abc123&sz=w400")
			So(out, ShouldNotContainSubstring, "\x1b[")
		})
	})
}

func TestWriteStructured(t *testing.T) {
	Convey("Given a report", t, func() {
		report := sampleReport()

		Convey("When written as JSON", func() {
			var buf bytes.Buffer
			So(render.Write(&buf, report, "JSON"), ShouldBeNil)

			Convey("Then it decodes back to the same report", func() {
				var got model.Report
				So(json.Unmarshal(buf.Bytes(), &got), ShouldBeNil)
				So(got.RunID, ShouldEqual, "run-1")
				So(got.Teams, ShouldHaveLength, 2)
				So(*got.Teams[1].Financials.Profit, ShouldEqual, -12.5)
			})
		})

		Convey("When written as YAML", func() {
			var buf bytes.Buffer
			So(render.Write(&buf, report, render.FormatYAML), ShouldBeNil)

			Convey("Then it carries the snake_case keys", func() {
				var got map[string]any
				So(yaml.Unmarshal(buf.Bytes(), &got), ShouldBeNil)
				So(got["run_id"], ShouldEqual, "run-1")
				So(got["variance_threshold"], ShouldEqual, 15)
			})
		})

		Convey("When the format is unknown", func() {
			err := render.Write(&bytes.Buffer{}, report, "xml")

			Convey("Then ErrUnknownFormat is returned", func() {
				So(errors.Is(err, render.ErrUnknownFormat), ShouldBeTrue)
			})
		})
	})
}
