package questionnaire_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/okian/dons/internal/domain/questionnaire"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultBank(t *testing.T) {
	Convey("Given the embedded bank", t, func() {
		bank := questionnaire.Default()

		Convey("Then it has 18 categories of 13 items each", func() {
			cats := bank.Categories()
			So(len(cats), ShouldEqual, 18)
			for _, c := range cats {
				So(len(c.Items), ShouldEqual, 13)
				So(c.MaxScore, ShouldEqual, 520)
			}
			So(bank.Len(), ShouldEqual, 234)
		})

		Convey("Then item ids are 1..234 with no gaps", func() {
			ids := bank.ItemIDs()
			So(ids[0], ShouldEqual, 1)
			So(ids[len(ids)-1], ShouldEqual, 234)
		})

		Convey("Then Categories returns a copy", func() {
			cats := bank.Categories()
			cats[0].Items[0] = 9999
			So(bank.Categories()[0].Items[0], ShouldEqual, 1)
		})
	})
}

func TestLoad(t *testing.T) {
	Convey("Given YAML input", t, func() {
		Convey("When a category is well formed", func() {
			b, err := questionnaire.Load(strings.NewReader(`
categories:
  - name: A
    max_score: 80
    items: [1, 2]
`))
			So(err, ShouldBeNil)
			So(b.Categories()[0].Name, ShouldEqual, "A")
		})

		Convey("When an item is mapped twice", func() {
			_, err := questionnaire.Load(strings.NewReader(`
categories:
  - {name: A, items: [1, 2]}
  - {name: B, items: [2, 3]}
`))
			So(errors.Is(err, questionnaire.ErrInvalidBank), ShouldBeTrue)
		})

		Convey("When a name is blank", func() {
			_, err := questionnaire.Load(strings.NewReader(`categories: [{name: " ", items: [1]}]`))
			So(errors.Is(err, questionnaire.ErrInvalidBank), ShouldBeTrue)
		})

		Convey("When there are no categories", func() {
			_, err := questionnaire.Load(strings.NewReader(`categories: []`))
			So(errors.Is(err, questionnaire.ErrInvalidBank), ShouldBeTrue)
		})

		Convey("When the YAML is malformed", func() {
			_, err := questionnaire.Load(strings.NewReader(`categories: [`))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given a small bank", t, func() {
		bank, err := questionnaire.New([]questionnaire.Category{
			{Name: "A", Items: []int{1, 2}},
			{Name: "B", Items: []int{3}},
		})
		So(err, ShouldBeNil)

		Convey("Then a complete valid answer set passes", func() {
			a := questionnaire.Answers{1: questionnaire.Agree, 2: questionnaire.Neutral, 3: questionnaire.StronglyAgree}
			So(bank.Validate(a, true), ShouldBeNil)
		})

		Convey("Then a partial set passes when completeness is not required", func() {
			So(bank.Validate(questionnaire.Answers{1: questionnaire.Disagree}, false), ShouldBeNil)
		})

		Convey("Then a partial set fails when completeness is required", func() {
			So(errors.Is(bank.Validate(questionnaire.Answers{1: questionnaire.Disagree}, true), questionnaire.ErrIncomplete), ShouldBeTrue)
		})

		Convey("Then an off-scale level is rejected", func() {
			So(errors.Is(bank.Validate(questionnaire.Answers{1: 15}, false), questionnaire.ErrInvalidLevel), ShouldBeTrue)
		})

		Convey("Then an unknown item is rejected", func() {
			So(errors.Is(bank.Validate(questionnaire.Answers{42: questionnaire.Agree}, false), questionnaire.ErrUnknownItem), ShouldBeTrue)
		})
	})
}

func TestLevel(t *testing.T) {
	Convey("Given the answer levels", t, func() {
		for _, l := range questionnaire.Levels {
			So(l.Valid(), ShouldBeTrue)
		}
		So(questionnaire.Level(5).Valid(), ShouldBeFalse)
		So(questionnaire.Level(50).Valid(), ShouldBeFalse)
	})
}
