package scoring_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/dons/internal/domain/questionnaire"
	"github.com/okian/dons/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func smallBank() []questionnaire.Category {
	return []questionnaire.Category{
		{Name: "Alpha", Items: []int{1, 2, 3}},
		{Name: "Beta", Items: []int{4, 5, 6}},
		{Name: "Gamma", Items: []int{7, 8, 9}},
	}
}

func TestScore(t *testing.T) {
	Convey("Given a small category list", t, func() {
		cats := smallBank()

		Convey("When scoring a mixed answer set", func() {
			answers := questionnaire.Answers{
				1: questionnaire.StronglyAgree, 2: questionnaire.Agree, 3: questionnaire.Neutral,
				4: questionnaire.StronglyAgree, 5: questionnaire.StronglyAgree, 6: questionnaire.StronglyAgree,
				7: questionnaire.Disagree,
			}
			ranking := scoring.Score(answers, cats)

			Convey("Then totals are sums of levels and ranking is descending", func() {
				want := scoring.Ranking{
					{Name: "Beta", Total: 120, Percent: 43},
					{Name: "Alpha", Total: 90, Percent: 32},
					{Name: "Gamma", Total: 10, Percent: 4},
				}
				So(cmp.Diff(want, ranking), ShouldBeEmpty)
			})
		})

		Convey("When no answers are given", func() {
			ranking := scoring.Score(questionnaire.Answers{}, cats)

			Convey("Then every total is zero and declaration order is kept", func() {
				So(ranking[0].Name, ShouldEqual, "Alpha")
				So(ranking[1].Name, ShouldEqual, "Beta")
				So(ranking[2].Name, ShouldEqual, "Gamma")
				for _, e := range ranking {
					So(e.Total, ShouldEqual, 0)
					So(e.Percent, ShouldEqual, 0)
				}
			})
		})

		Convey("When two categories tie", func() {
			answers := questionnaire.Answers{1: questionnaire.Agree, 9: questionnaire.Agree}
			ranking := scoring.Score(answers, cats)

			Convey("Then the earlier declared category ranks first", func() {
				So(ranking[0].Name, ShouldEqual, "Alpha")
				So(ranking[1].Name, ShouldEqual, "Gamma")
				So(ranking[2].Name, ShouldEqual, "Beta")
			})
		})

		Convey("When answers reference items outside any category", func() {
			ranking := scoring.Score(questionnaire.Answers{99: questionnaire.StronglyAgree}, cats)

			Convey("Then they are ignored", func() {
				for _, e := range ranking {
					So(e.Total, ShouldEqual, 0)
				}
			})
		})
	})
}

func TestScoreDeterminism(t *testing.T) {
	Convey("Given the default engine and a full answer set", t, func() {
		engine := scoring.NewEngine()
		answers := questionnaire.Answers{}
		for i, id := range questionnaire.Default().ItemIDs() {
			answers[id] = questionnaire.Levels[i%len(questionnaire.Levels)]
		}

		Convey("Then scoring twice yields identical rankings", func() {
			first := engine.Score(answers)
			second := engine.Score(answers)
			So(cmp.Diff(first, second), ShouldBeEmpty)
			So(len(first), ShouldEqual, 18)
		})
	})
}

func TestScoreFullCategory(t *testing.T) {
	Convey("Given every item of one category answered at the top level", t, func() {
		bank := questionnaire.Default()
		target := bank.Categories()[4]
		answers := questionnaire.Answers{}
		for _, id := range target.Items {
			answers[id] = questionnaire.StronglyAgree
		}

		ranking := scoring.NewEngine().Score(answers)

		Convey("Then the total is 520 and the percent uses the fixed divisor unclamped", func() {
			So(ranking[0].Name, ShouldEqual, target.Name)
			So(ranking[0].Total, ShouldEqual, 520)
			So(ranking[0].Percent, ShouldEqual, 186)
			So(ranking[0].Percent, ShouldBeGreaterThan, 100)
		})
	})
}

func TestPercent(t *testing.T) {
	Convey("Given totals on the answer grid", t, func() {
		So(scoring.Percent(0), ShouldEqual, 0)
		So(scoring.Percent(140), ShouldEqual, 50)
		So(scoring.Percent(280), ShouldEqual, 100)
		So(scoring.Percent(30), ShouldEqual, 11)
		So(scoring.Percent(520), ShouldEqual, 186)
	})
}

func TestRankingHelpers(t *testing.T) {
	Convey("Given a ranking", t, func() {
		r := scoring.Ranking{{Name: "A", Total: 30, Percent: 11}, {Name: "B", Total: 10, Percent: 4}}

		Convey("Then Top clamps to the available entries", func() {
			So(len(r.Top(3)), ShouldEqual, 2)
			So(len(r.Top(1)), ShouldEqual, 1)
			So(len(r.Top(-1)), ShouldEqual, 0)
		})

		Convey("Then JSON round-trips the entries", func() {
			var back scoring.Ranking
			So(json.Unmarshal([]byte(r.JSON()), &back), ShouldBeNil)
			So(cmp.Diff(r, back), ShouldBeEmpty)
		})

		Convey("Then a nil ranking serializes as an empty array", func() {
			So(scoring.Ranking(nil).JSON(), ShouldEqual, "[]")
		})
	})
}
