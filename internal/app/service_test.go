package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/dons/internal/adapters/channel"
	"github.com/okian/dons/internal/adapters/repository"
	service "github.com/okian/dons/internal/app"
	"github.com/okian/dons/internal/domain/model"
	"github.com/okian/dons/internal/domain/questionnaire"
	"github.com/okian/dons/internal/domain/routing"
	"github.com/okian/dons/internal/domain/scoring"
	"github.com/okian/dons/internal/domain/types"
	"github.com/okian/dons/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var fixedNow = time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)

func answers() questionnaire.Answers {
	a := questionnaire.Answers{}
	for _, id := range questionnaire.Default().ItemIDs() {
		a[id] = questionnaire.Level((id % 5) * 10)
	}
	return a
}

func newService(t *testing.T, sim *channel.Simulation, opts ...service.Option) *service.Service {
	t.Helper()
	chs := []channel.Channel{}
	if sim != nil {
		chs = append(chs, sim)
	}
	base := []service.Option{
		service.WithLogger(logger.Nop()),
		service.WithClock(func() time.Time { return fixedNow }),
		service.WithChannels(chs...),
		service.WithRoutes(routing.NewTable(map[string]string{"North": "office@north.org"})),
	}
	s := service.New(append(base, opts...)...)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func simulation() *channel.Simulation {
	return channel.NewSimulation(true, false, channel.WithSimulationLogger(logger.Nop()))
}

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		s := service.New(service.WithLogger(logger.Nop()))

		Convey("Then every operation reports ErrNotStarted", func() {
			_, err := s.Submit(context.Background(), service.Submission{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = s.Lookup(context.Background(), "x")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, _, err = s.Insights(context.Background(), 1)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(s.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with simulated delivery", t, func() {
		sim := simulation()
		s := newService(t, sim)

		Convey("When an unrouted participant with email submits", func() {
			res, err := s.Submit(ctx, service.Submission{
				SubmissionID: "sub-1",
				Participant:  participant("Ana", "South", " Ana@Example.com "),
				Answers:      answers(),
			})
			So(err, ShouldBeNil)

			Convey("Then the ranking matches the engine and is stored", func() {
				want := scoring.Score(answers(), questionnaire.Default().Categories())
				So(res.Ranking, ShouldResemble, want)
				So(res.Duplicate, ShouldBeFalse)

				stored, err := s.Lookup(ctx, res.ID)
				So(err, ShouldBeNil)
				So(stored.Participant.Email, ShouldEqual, "ana@example.com")
				So(stored.SubmissionID, ShouldEqual, "sub-1")
				So(stored.CreatedAt.Equal(fixedNow), ShouldBeTrue)
			})

			Convey("Then only the participant leg is sent", func() {
				So(res.Delivery.Coordinator.Outcome, ShouldEqual, types.OutcomeSkipped)
				So(res.Delivery.Participant.Outcome, ShouldEqual, types.OutcomeSuccess)
				So(res.Delivery.Participant.Channel, ShouldEqual, types.ChannelSimulation)
				So(sim.Sent(), ShouldHaveLength, 1)
				So(sim.Sent()[0].ToEmail, ShouldEqual, "ana@example.com")
			})

			Convey("Then repeating the submission id returns the same record", func() {
				again, err := s.Submit(ctx, service.Submission{
					SubmissionID: "sub-1",
					Participant:  participant("Ana", "South", "ana@example.com"),
					Answers:      answers(),
				})
				So(err, ShouldBeNil)
				So(again.ID, ShouldEqual, res.ID)
				So(again.Duplicate, ShouldBeTrue)
				So(again.Delivery, ShouldPointTo, res.Delivery)
				So(sim.Sent(), ShouldHaveLength, 1)

				cached, ok := s.DeliveryStatus(ctx, res.ID)
				So(ok, ShouldBeTrue)
				So(cached, ShouldPointTo, res.Delivery)
			})
		})

		Convey("When the submission id is omitted", func() {
			a, err := s.Submit(ctx, service.Submission{Participant: participant("Ana", "South", ""), Answers: answers()})
			So(err, ShouldBeNil)
			b, err := s.Submit(ctx, service.Submission{Participant: participant("Ana", "South", ""), Answers: answers()})
			So(err, ShouldBeNil)

			Convey("Then each call creates a distinct record", func() {
				So(a.ID, ShouldNotEqual, b.ID)
				So(a.Delivery.Participant.Outcome, ShouldEqual, types.OutcomeSkipped)
			})
		})

		Convey("When the participant is incomplete or answers are invalid", func() {
			_, errName := s.Submit(ctx, service.Submission{Participant: participant("", "South", ""), Answers: answers()})
			_, errLevel := s.Submit(ctx, service.Submission{
				Participant: participant("Ana", "South", ""),
				Answers:     questionnaire.Answers{1: 15},
			})
			_, errItem := s.Submit(ctx, service.Submission{
				Participant: participant("Ana", "South", ""),
				Answers:     questionnaire.Answers{999: 10},
			})

			Convey("Then the submission is rejected and nothing is stored", func() {
				So(errors.Is(errName, service.ErrInvalidSubmission), ShouldBeTrue)
				So(errors.Is(errLevel, questionnaire.ErrInvalidLevel), ShouldBeTrue)
				So(errors.Is(errItem, questionnaire.ErrUnknownItem), ShouldBeTrue)
				So(s.GetStats()["stored_assessments"], ShouldEqual, 0)
			})
		})
	})

	Convey("Given a service that requires complete answers", t, func() {
		s := newService(t, simulation(), service.WithRequireComplete(true))

		Convey("Then partial answers are rejected", func() {
			_, err := s.Submit(ctx, service.Submission{
				Participant: participant("Ana", "South", ""),
				Answers:     questionnaire.Answers{1: 10},
			})
			So(errors.Is(err, questionnaire.ErrIncomplete), ShouldBeTrue)
		})
	})

	Convey("Given email delivery is disabled", t, func() {
		sim := simulation()
		s := newService(t, sim, service.WithEmailEnabled(false))

		res, err := s.Submit(ctx, service.Submission{
			Participant: participant("Ana", "North", "ana@example.com"),
			Answers:     answers(),
		})

		Convey("Then the record is stored and both legs are skipped", func() {
			So(err, ShouldBeNil)
			So(res.Delivery.Coordinator.Outcome, ShouldEqual, types.OutcomeSkipped)
			So(res.Delivery.Participant.Outcome, ShouldEqual, types.OutcomeSkipped)
			So(sim.Sent(), ShouldBeEmpty)
			_, err := s.Lookup(ctx, res.ID)
			So(err, ShouldBeNil)
		})
	})

	Convey("Given no channel is enabled", t, func() {
		s := newService(t, nil)

		res, err := s.Submit(ctx, service.Submission{
			Participant: participant("Ana", "South", "ana@example.com"),
			Answers:     answers(),
		})

		Convey("Then the record survives and the leg is not_configured", func() {
			So(err, ShouldBeNil)
			So(res.Delivery.Participant.Outcome, ShouldEqual, types.OutcomeNotConfigured)
			_, err := s.Lookup(ctx, res.ID)
			So(err, ShouldBeNil)
		})
	})
}

func TestService_SubmitBothLegs(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the pacing delay")
	}

	Convey("Given a routed organization and a participant email", t, func() {
		sim := simulation()
		s := newService(t, sim)

		res, err := s.Submit(context.Background(), service.Submission{
			Participant: participant("Ana", "North", "ana@example.com"),
			Answers:     answers(),
		})

		Convey("Then the coordinator is notified before the participant", func() {
			So(err, ShouldBeNil)
			So(res.Delivery.Coordinator.Outcome, ShouldEqual, types.OutcomeSuccess)
			So(res.Delivery.Participant.Outcome, ShouldEqual, types.OutcomeSuccess)
			sent := sim.Sent()
			So(sent, ShouldHaveLength, 2)
			So(sent[0].ToEmail, ShouldEqual, "office@north.org")
			So(sent[1].ToEmail, ShouldEqual, "ana@example.com")
		})
	})
}

func TestService_ConcurrentDuplicates(t *testing.T) {
	Convey("Given many concurrent submissions with one submission id", t, func() {
		sim := simulation()
		s := newService(t, sim)

		var wg sync.WaitGroup
		ids := make([]string, 8)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := s.Submit(context.Background(), service.Submission{
					SubmissionID: "same",
					Participant:  participant("Ana", "South", "ana@example.com"),
					Answers:      answers(),
				})
				if err == nil {
					ids[i] = res.ID
				}
			}(i)
		}
		wg.Wait()

		Convey("Then one record exists and one message was sent", func() {
			for _, id := range ids {
				So(id, ShouldEqual, ids[0])
			}
			So(s.GetStats()["stored_assessments"], ShouldEqual, 1)
			So(sim.Sent(), ShouldHaveLength, 1)
		})
	})
}

func TestService_ResendAndInsights(t *testing.T) {
	ctx := context.Background()

	Convey("Given stored assessments", t, func() {
		sim := simulation()
		s := newService(t, sim, service.WithEmailEnabled(false), service.WithMaxInsightsLimit(5))

		first, err := s.Submit(ctx, service.Submission{Participant: participant("Ana", "South", "ana@example.com"), Answers: answers()})
		So(err, ShouldBeNil)
		_, err = s.Submit(ctx, service.Submission{Participant: participant("Bo", "South", ""), Answers: answers()})
		So(err, ShouldBeNil)

		Convey("When resending with and without an override", func() {
			res, err := s.Resend(ctx, first.ID, "")
			So(err, ShouldBeNil)
			over, err := s.Resend(ctx, first.ID, "other@example.com")
			So(err, ShouldBeNil)
			missing, err := s.Resend(ctx, "nope", "")
			So(err, ShouldBeNil)

			Convey("Then outcomes are structured", func() {
				So(res.Outcome, ShouldEqual, types.OutcomeSuccess)
				So(res.Address, ShouldEqual, "ana@example.com")
				So(over.Address, ShouldEqual, "other@example.com")
				So(missing.Outcome, ShouldBeIn, types.OutcomeInvalidID, types.OutcomeNotFound)
				So(sim.Sent(), ShouldHaveLength, 2)
			})
		})

		Convey("When aggregating insights", func() {
			insights, n, err := s.Insights(ctx, 0)
			So(err, ShouldBeNil)

			Convey("Then every record contributes", func() {
				So(n, ShouldEqual, 2)
				So(insights, ShouldNotBeEmpty)
				So(insights[0].TimesInTop3, ShouldEqual, 2)
			})

			Convey("Then limits above the maximum are rejected", func() {
				_, _, err := s.Insights(ctx, 6)
				So(errors.Is(err, service.ErrInvalidLimit), ShouldBeTrue)
			})
		})
	})
}

func TestService_ChannelHealthAndRelay(t *testing.T) {
	Convey("Given a provider without credentials", t, func() {
		provider := channel.NewProvider(channel.ProviderConfig{ServiceID: "svc"})
		s := newService(t, nil, service.WithChannels(provider, simulation()))

		Convey("Then health shows presence flags without values", func() {
			h := s.ChannelHealth()
			So(h.Enabled, ShouldResemble, []string{"simulation"})
			So(h.Provider, ShouldBeFalse)
			So(h.Simulation, ShouldBeTrue)
			So(h.ServiceID, ShouldEqual, "yes")
			So(h.TemplateID, ShouldEqual, "no")
			So(h.PublicKey, ShouldEqual, "no")
		})

		Convey("Then health lists the routed organizations", func() {
			So(s.ChannelHealth().Organizations, ShouldResemble, []string{"North"})
		})

		Convey("Then relaying is refused", func() {
			_, err := s.Relay(context.Background(), map[string]any{"a": 1})
			So(errors.Is(err, service.ErrRelayUnavailable), ShouldBeTrue)
		})
	})
}

func TestService_SQLiteStore(t *testing.T) {
	Convey("Given a service backed by an in-memory SQLite store", t, func() {
		st, err := repository.NewSQLiteStore(context.Background(), repository.MemoryDSN)
		So(err, ShouldBeNil)
		s := newService(t, simulation(), service.WithStore(st), service.WithEmailEnabled(false))

		res, err := s.Submit(context.Background(), service.Submission{
			SubmissionID: "sql-1",
			Participant:  participant("Ana", "South", ""),
			Answers:      answers(),
		})

		Convey("Then the record round-trips", func() {
			So(err, ShouldBeNil)
			got, err := s.Lookup(context.Background(), res.ID)
			So(err, ShouldBeNil)
			So(got.Ranking, ShouldResemble, res.Ranking)
			So(s.GetStats()["stored_assessments"], ShouldEqual, 1)
		})
	})
}

func participant(name, org, email string) model.Participant {
	return model.Participant{Name: name, Organization: org, Email: email}
}
