package model_test

import (
	"testing"

	model "github.com/okian/peerreview/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEvaluation(t *testing.T) {
	convey.Convey("Given an evaluation with two assessments", t, func() {
		e := model.Evaluation{
			Submitter: "2A - Watts, BriAri",
			Assessments: []model.Assessment{
				{Student: "2A - Watts, BriAri", Percentage: 50},
				{Student: "2A - Lee, Sam", Percentage: 40},
			},
		}

		convey.Convey("Then percentages are looked up by student", func() {
			pct, ok := e.Percentage("2A - Lee, Sam")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(pct, convey.ShouldEqual, 40)

			_, ok = e.Percentage("2A - Nobody, X")
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Then the total sums every assessment", func() {
			convey.So(e.PercentageTotal(), convey.ShouldEqual, 90)
		})
	})
}

func TestTeam(t *testing.T) {
	convey.Convey("Given a team", t, func() {
		team := model.Team{
			Key:         "2A",
			Students:    []string{"2A - Watts, BriAri", "2A - Lee, Sam"},
			Evaluations: []model.Evaluation{{Submitter: "2A - Lee, Sam"}},
		}

		convey.So(team.Size(), convey.ShouldEqual, 2)
		convey.So(team.HasStudent("2A - Lee, Sam"), convey.ShouldBeTrue)
		convey.So(team.HasStudent("2B - Lee, Sam"), convey.ShouldBeFalse)
		convey.So(team.Submitters(), convey.ShouldResemble, []string{"2A - Lee, Sam"})
	})
}

func TestLedger(t *testing.T) {
	convey.Convey("Given an empty ledger", t, func() {
		var l model.Ledger

		convey.Convey("When rows are put", func() {
			l = l.Put(model.StudentFinancial{Name: "BriAri Watts", Income: 10})
			l = l.Put(model.StudentFinancial{Name: "Sam Lee", Income: 20})
			l = l.Put(model.StudentFinancial{Name: "BriAri Watts", Income: 30})

			convey.Convey("Then a repeated name replaces the row in place", func() {
				convey.So(l.Names(), convey.ShouldResemble, []string{"BriAri Watts", "Sam Lee"})
				row, ok := l.Lookup("BriAri Watts")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(row.Income, convey.ShouldEqual, 30)
			})
		})
	})
}

func TestFeedbackTexts(t *testing.T) {
	convey.Convey("Feedback texts follow prompt order", t, func() {
		f := model.Feedback{Challenges: "c", Positives: "p", Advice: "a"}
		convey.So(f.Texts(), convey.ShouldResemble, []string{"c", "p", "a"})
	})
}
