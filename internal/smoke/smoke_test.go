package smoke_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/dons/internal/adapters/channel"
	"github.com/okian/dons/internal/adapters/http/api"
	service "github.com/okian/dons/internal/app"
	"github.com/okian/dons/internal/domain/questionnaire"
	"github.com/okian/dons/internal/smoke"
	"github.com/okian/dons/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	sim := channel.NewSimulation(true, false, channel.WithSimulationLogger(logger.Nop()))
	svc := service.New(service.WithLogger(logger.Nop()), service.WithChannels(sim))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, api.WithLogger(logger.Nop())).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		cfg := &smoke.Config{Organization: "Smoke", Seed: 7, WithEmail: true}
		bank := questionnaire.Default()
		subs := smoke.Generate(cfg, bank, 3)

		Convey("Then every submission answers every item with a valid level", func() {
			So(subs, ShouldHaveLength, 3)
			for _, s := range subs {
				So(s.Answers, ShouldHaveLength, bank.Len())
				for _, v := range s.Answers {
					So(questionnaire.Level(v).Valid(), ShouldBeTrue)
				}
				So(s.Email, ShouldNotBeEmpty)
				So(s.SubmissionID, ShouldNotBeEmpty)
			}
		})

		Convey("Then the same seed yields the same answers", func() {
			again := smoke.Generate(cfg, bank, 3)
			So(again[1].Answers, ShouldResemble, subs[1].Answers)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		srv := startServer(t)
		out := filepath.Join(t.TempDir(), "subs.json")
		cfg := &smoke.Config{
			BaseURL:      srv.URL,
			Submissions:  12,
			Workers:      4,
			Timeout:      5 * time.Second,
			Organization: "Smoke",
			Seed:         1,
			OutputFile:   out,
		}

		stats, err := smoke.Run(context.Background(), cfg, logger.Nop())

		Convey("Then every submission is created, verified and read back", func() {
			So(err, ShouldBeNil)
			So(stats.Created, ShouldEqual, 12)
			So(stats.Verified, ShouldEqual, 12)
			So(stats.ReadBack, ShouldEqual, 12)
			So(stats.Failed, ShouldEqual, 0)
			_, statErr := os.Stat(out)
			So(statErr, ShouldBeNil)
		})
	})

	Convey("Given no service", t, func() {
		cfg := &smoke.Config{BaseURL: "http://127.0.0.1:1", Submissions: 1, Workers: 1, Timeout: time.Second}

		Convey("Then the health check fails", func() {
			_, err := smoke.Run(context.Background(), cfg, logger.Nop())
			So(err, ShouldNotBeNil)
		})
	})
}
