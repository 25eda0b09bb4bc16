package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/dons/internal/adapters/repository"
	"github.com/okian/dons/internal/domain/questionnaire"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		ctx := context.Background()
		s, err := repository.NewMemoryStore()
		So(err, ShouldBeNil)

		Convey("When an assessment is created", func() {
			id, created, err := s.Create(ctx, sampleAssessment("m-1", time.Now()))
			So(err, ShouldBeNil)
			So(created, ShouldBeTrue)

			Convey("Then it can be read back with a normalized email", func() {
				got, err := s.GetByID(ctx, id)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, id)
				So(got.Participant.Email, ShouldEqual, "ana@example.com")
			})

			Convey("Then a repeated submission returns the same id", func() {
				again, created, err := s.Create(ctx, sampleAssessment("m-1", time.Now()))
				So(err, ShouldBeNil)
				So(created, ShouldBeFalse)
				So(again, ShouldEqual, id)
				n, _ := s.Count(ctx)
				So(n, ShouldEqual, 1)
			})

			Convey("Then mutating the returned record does not affect the store", func() {
				got, _ := s.GetByID(ctx, id)
				got.Answers[1] = questionnaire.StronglyDisagree
				got.Ranking[0].Total = -1
				fresh, _ := s.GetByID(ctx, id)
				So(fresh.Answers[1], ShouldEqual, questionnaire.StronglyAgree)
				So(fresh.Ranking[0].Total, ShouldBeGreaterThanOrEqualTo, 0)
			})
		})

		Convey("When reading unknown or malformed ids", func() {
			codec, _ := repository.NewIDCodec("", 0)
			unknown, _ := codec.Encode(5)
			_, err := s.GetByID(ctx, unknown)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = s.GetByID(ctx, "")
			So(errors.Is(err, repository.ErrInvalidID), ShouldBeTrue)
		})

		Convey("When listing", func() {
			for _, sub := range []string{"x", "y", "z"} {
				_, _, _ = s.Create(ctx, sampleAssessment(sub, time.Now()))
			}
			got, err := s.List(ctx, 10)
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 3)
			So(got[0].SubmissionID, ShouldEqual, "z")
		})
	})
}

func TestIDCodec(t *testing.T) {
	Convey("Given two codecs with different salts", t, func() {
		a, err := repository.NewIDCodec("alpha", 10)
		So(err, ShouldBeNil)
		b, err := repository.NewIDCodec("beta", 10)
		So(err, ShouldBeNil)

		id, err := a.Encode(42)
		So(err, ShouldBeNil)
		So(len(id), ShouldBeGreaterThanOrEqualTo, 10)

		Convey("Then the owning codec decodes it", func() {
			n, err := a.Decode(id)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 42)
		})

		Convey("Then a foreign codec rejects it", func() {
			_, err := b.Decode(id)
			So(errors.Is(err, repository.ErrInvalidID), ShouldBeTrue)
		})
	})
}

func TestNormalizeEmail(t *testing.T) {
	Convey("Email normalization never fails", t, func() {
		So(repository.NormalizeEmail("  Bob@Example.ORG "), ShouldEqual, "bob@example.org")
		So(repository.NormalizeEmail("nope"), ShouldEqual, "")
		So(repository.NormalizeEmail(""), ShouldEqual, "")
	})
}
