package source_test

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/peerreview/internal/adapters/source"
	"github.com/okian/peerreview/internal/domain/roster"
	"github.com/okian/peerreview/internal/domain/survey"
	. "github.com/smartystreets/goconvey/convey"
)

func writeCSV(t *testing.T, path string, records [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		t.Fatal(err)
	}
}

func writeWorkbook(t *testing.T, path, sheet string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			t.Fatal(err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestReadCSV(t *testing.T) {
	Convey("Given CSV text with ragged rows and a stray quote", t, func() {
		in := "a,b,c\n1,2\n3,x\"y,4,5\n"

		Convey("Then the header and every row are returned", func() {
			header, rows, err := source.ReadCSV(strings.NewReader(in))
			So(err, ShouldBeNil)
			So(header, ShouldResemble, []string{"a", "b", "c"})
			So(rows, ShouldHaveLength, 2)
			So(rows[0], ShouldResemble, []string{"1", "2"})
			So(rows[1][1], ShouldEqual, "x\"y")
		})
	})

	Convey("Given empty input", t, func() {
		header, rows, err := source.ReadCSV(strings.NewReader(""))

		Convey("Then nothing is returned", func() {
			So(err, ShouldBeNil)
			So(header, ShouldBeNil)
			So(rows, ShouldBeNil)
		})
	})
}

func TestLoadSurveyAndRoster(t *testing.T) {
	Convey("Given a survey export and a roster", t, func() {
		dir := t.TempDir()
		surveyPath := filepath.Join(dir, "survey.csv")
		writeCSV(t, surveyPath, [][]string{
			{survey.ColTimestamp, survey.ColSubmitter, survey.ColSelfPercentage},
			{"9/1/2025 10:00:00", "2A - Smith, Alice", "50%"},
		})
		rosterPath := filepath.Join(dir, "roster.csv")
		writeCSV(t, rosterPath, [][]string{
			{roster.ColPeriod, roster.ColGroup, roster.ColFirstName, roster.ColLastName},
			{"1", "2A", "Alice", "Smith"},
			{"1", "2A", "Bob", "Jones"},
		})

		Convey("Then the survey rows are bound", func() {
			rows, err := source.LoadSurvey(surveyPath)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0].Submitter, ShouldEqual, "2A - Smith, Alice")
		})

		Convey("Then the roster entries are composed", func() {
			entries, err := source.LoadRoster(rosterPath)
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 2)
			So(entries[1].ID, ShouldEqual, "2A - Jones, Bob")
		})

		Convey("When the survey lacks the submitter column", func() {
			bad := filepath.Join(dir, "bad.csv")
			writeCSV(t, bad, [][]string{{survey.ColTimestamp}, {"9/1/2025"}})
			_, err := source.LoadSurvey(bad)

			Convey("Then the schema error is returned", func() {
				So(errors.Is(err, survey.ErrMissingColumn), ShouldBeTrue)
			})
		})

		Convey("When the survey file is missing", func() {
			_, err := source.LoadSurvey(filepath.Join(dir, "nope.csv"))

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the roster has an unsupported extension", func() {
			_, err := source.LoadRoster(filepath.Join(dir, "roster.txt"))

			Convey("Then ErrUnsupportedFormat is returned", func() {
				So(errors.Is(err, source.ErrUnsupportedFormat), ShouldBeTrue)
			})
		})
	})
}

func TestLoadSurveyWorkbook(t *testing.T) {
	Convey("Given a survey workbook with date and percent formatted cells", t, func() {
		path := filepath.Join(t.TempDir(), "responses.xlsx")
		f := excelize.NewFile()
		rows := [][]interface{}{
			{survey.ColTimestamp, survey.ColSubmitter, survey.ColSelfPercentage},
			{time.Date(2024, 10, 2, 9, 0, 0, 0, time.UTC), "2A - Watts, BriAri", 0.7},
			{time.Date(2024, 9, 1, 9, 0, 0, 0, time.UTC), "2A - Watts, BriAri", 0.1},
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			So(err, ShouldBeNil)
			r := row
			So(f.SetSheetRow("Sheet1", cell, &r), ShouldBeNil)
		}
		pct, err := f.NewStyle(&excelize.Style{NumFmt: 9})
		So(err, ShouldBeNil)
		So(f.SetCellStyle("Sheet1", "C2", "C3", pct), ShouldBeNil)
		So(f.SaveAs(path), ShouldBeNil)
		So(f.Close(), ShouldBeNil)

		Convey("When it is loaded and ingested", func() {
			loaded, err := source.LoadSurvey(path)
			So(err, ShouldBeNil)
			res := survey.NewIngestor().Ingest(context.Background(), loaded)

			Convey("Then percent cells keep their displayed value", func() {
				So(loaded[0].Members[0].Percentage, ShouldEqual, "70%")
			})

			Convey("Then the most recent submission is kept", func() {
				So(res.Stats.BadTimestamps, ShouldEqual, 0)
				So(res.Stats.Duplicates, ShouldEqual, 1)
				So(res.Teams, ShouldHaveLength, 1)
				kept := res.Teams[0].Evaluations[0]
				So(kept.SubmittedAt.Format("2006-01-02"), ShouldEqual, "2024-10-02")
				So(kept.Assessments[0].Percentage, ShouldEqual, 70)
			})
		})
	})
}

func TestTeamKeyFromPath(t *testing.T) {
	Convey("Given financial file names", t, func() {
		Convey("Then the prefix before the first dash is the team key", func() {
			key, err := source.TeamKeyFromPath("/tmp/2A-Income and Expense Tracking.xlsx")
			So(err, ShouldBeNil)
			So(key, ShouldEqual, "2A")

			key, err = source.TeamKeyFromPath("3C.csv")
			So(err, ShouldBeNil)
			So(key, ShouldEqual, "3C")
		})

		Convey("Then a name starting with a dash has no key", func() {
			_, err := source.TeamKeyFromPath("-ledger.xlsx")
			So(errors.Is(err, source.ErrNoTeamKey), ShouldBeTrue)
		})
	})
}

func TestLoadFinancials(t *testing.T) {
	Convey("Given a set of financial files", t, func() {
		dir := t.TempDir()
		summary := filepath.Join(dir, "2A-Income and Expense Tracking.xlsx")
		writeWorkbook(t, summary, "Summary", [][]interface{}{
			{"Team 2A"},
			{"Total Profit", 150.5},
			{"Group Member", "Income", "Expenses", "Profit", "Inventory"},
			{"Alice Smith", 200, 100, 100, 3},
			{"Bob Jones", "$50.00", 0, 50, 0},
			{"Total", 250, 100, 150, 3},
		})
		plain := filepath.Join(dir, "1B-tracker.xlsx")
		writeWorkbook(t, plain, "Sheet1", [][]interface{}{
			{"Total Income", 100},
			{"Total Expenses", 130},
			{"Group Member", "Income"},
			{"Cara Lee", 100},
		})
		csvPath := filepath.Join(dir, "3C-tracking.csv")
		writeCSV(t, csvPath, [][]string{{"Item", "Amount"}, {"Net Profit", "$-5"}})
		notes := filepath.Join(dir, "4D-notes.txt")
		missing := filepath.Join(dir, "5E-missing.xlsx")

		ld := source.NewLoader(source.WithConcurrency(2))
		set, warnings := ld.LoadFinancials(context.Background(), []string{summary, plain, csvPath, notes, missing})

		Convey("Then the Summary sheet yields profit and student rows", func() {
			tf, ok := set.Lookup("2a")
			So(ok, ShouldBeTrue)
			So(tf.Team, ShouldEqual, "2A")
			So(*tf.Profit, ShouldEqual, 150.5)
			So(tf.Students.Names(), ShouldResemble, []string{"Alice Smith", "Bob Jones"})
			row, _ := tf.Students.Lookup("Bob Jones")
			So(row.Income, ShouldEqual, 50)
		})

		Convey("Then other sheets yield profit only", func() {
			tf, ok := set.Lookup("1B")
			So(ok, ShouldBeTrue)
			So(*tf.Profit, ShouldEqual, -30)
			So(tf.Students, ShouldBeEmpty)
		})

		Convey("Then CSV files yield profit", func() {
			tf, ok := set.Lookup("3C")
			So(ok, ShouldBeTrue)
			So(*tf.Profit, ShouldEqual, -5)
			So(tf.Source, ShouldEqual, "3C-tracking.csv")
		})

		Convey("Then unusable files become warnings in path order", func() {
			So(set.Len(), ShouldEqual, 3)
			So(set.Teams(), ShouldResemble, []string{"1B", "2A", "3C"})
			So(warnings, ShouldHaveLength, 2)
			So(warnings[0].Path, ShouldEqual, notes)
			So(errors.Is(warnings[0].Err, source.ErrUnsupportedFormat), ShouldBeTrue)
			So(warnings[1].Path, ShouldEqual, missing)
			So(warnings[1].String(), ShouldStartWith, "could not process 5E-missing.xlsx")
		})

		Convey("When two files name the same team", func() {
			later := filepath.Join(dir, "2a-correction.csv")
			writeCSV(t, later, [][]string{{"Total Profit", "10"}})
			set, warnings := ld.LoadFinancials(context.Background(), []string{summary, later})

			Convey("Then the later file wins", func() {
				So(warnings, ShouldBeEmpty)
				tf, _ := set.Lookup("2A")
				So(tf.Source, ShouldEqual, "2a-correction.csv")
				So(*tf.Profit, ShouldEqual, 10)
			})
		})
	})
}
