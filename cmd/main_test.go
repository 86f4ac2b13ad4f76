package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/peerreview/internal/domain/model"
	"github.com/okian/peerreview/internal/domain/survey"
)

func writeCSV(t *testing.T, path string, records [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := csv.NewWriter(f).WriteAll(records); err != nil {
		t.Fatal(err)
	}
}

func surveyFile(t *testing.T, dir string) string {
	path := filepath.Join(dir, "survey.csv")
	writeCSV(t, path, [][]string{
		{survey.ColTimestamp, survey.ColSubmitter, survey.ColSelfPercentage, "Group Member 2", "Group Member 2 percentage of work / effort"},
		{"9/1/2025 10:00:00", "2A - Smith, Alice", "50%", "2A - Jones, Bob", "50%"},
		{"9/1/2025 11:00:00", "2A - Jones, Bob", "50%", "2A - Smith, Alice", "50%"},
		{"9/1/2025 12:00:00", "3C - Park, Dan", "10%", "3C - Lee, Cara", "90%"},
	})
	return path
}

func TestExecute(t *testing.T) {
	convey.Convey("Given a survey export", t, func() {
		dir := t.TempDir()
		surveyPath := surveyFile(t, dir)
		ledgerPath := filepath.Join(dir, "2A-ledger.csv")
		writeCSV(t, ledgerPath, [][]string{{"Total Profit", "-3"}})
		ctx := context.Background()

		convey.Convey("When run with JSON output", func() {
			var stdout, stderr bytes.Buffer
			code := execute(ctx, []string{"--survey", surveyPath, "--financial", ledgerPath, "--format", "json"}, &stdout, &stderr)

			convey.Convey("Then the report is written to stdout", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				var report model.Report
				convey.So(json.Unmarshal(stdout.Bytes(), &report), convey.ShouldBeNil)
				convey.So(report.Totals.Teams, convey.ShouldEqual, 2)
				convey.So(report.Teams[0].Flags, convey.ShouldResemble, []string{"Negative profit ($-3.00)"})
				convey.So(report.Teams[1].Flagged, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When only flagged teams are asked for with a high threshold", func() {
			var stdout, stderr bytes.Buffer
			code := execute(ctx, []string{"--survey", surveyPath, "--only-flagged", "--threshold", "100", "--format", "yaml"}, &stdout, &stderr)

			convey.Convey("Then clean teams are left out", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(stdout.String(), convey.ShouldContainSubstring, "team: 3C")
				convey.So(stdout.String(), convey.ShouldNotContainSubstring, "team: 2A")
			})
		})

		convey.Convey("When a metrics file is requested", func() {
			var stdout, stderr bytes.Buffer
			metricsPath := filepath.Join(dir, "peerreview.prom")
			code := execute(ctx, []string{"--survey", surveyPath, "--metrics-file", metricsPath}, &stdout, &stderr)

			convey.Convey("Then the textfile is written", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				data, err := os.ReadFile(metricsPath)
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(data), convey.ShouldContainSubstring, "peerreview_pipeline_teams_scored_total")
				convey.So(stdout.String(), convey.ShouldContainSubstring, "Peer Review Report")
			})
		})

		convey.Convey("When the survey flag is missing", func() {
			var stdout, stderr bytes.Buffer
			code := execute(ctx, nil, &stdout, &stderr)

			convey.Convey("Then the input exit code is returned", func() {
				convey.So(code, convey.ShouldEqual, exitInput)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "survey")
			})
		})

		convey.Convey("When the survey has the wrong schema", func() {
			bad := filepath.Join(dir, "bad.csv")
			writeCSV(t, bad, [][]string{{"Name"}, {"x"}})
			var stdout, stderr bytes.Buffer
			code := execute(ctx, []string{"--survey", bad}, &stdout, &stderr)

			convey.Convey("Then the input exit code is returned and nothing is rendered", func() {
				convey.So(code, convey.ShouldEqual, exitInput)
				convey.So(stdout.String(), convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the format is unknown", func() {
			var stdout, stderr bytes.Buffer
			code := execute(ctx, []string{"--survey", surveyPath, "--format", "xml"}, &stdout, &stderr)

			convey.Convey("Then configuration validation fails", func() {
				convey.So(code, convey.ShouldEqual, exitInput)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "output_format")
			})
		})
	})
}
