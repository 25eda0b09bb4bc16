package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"

	"github.com/okian/dons/internal/adapters/channel"
	app "github.com/okian/dons/internal/app"
	"github.com/okian/dons/internal/domain/model"
	"github.com/okian/dons/internal/domain/questionnaire"
	"github.com/okian/dons/pkg/logger"
)

// seeded returns an opener over a shared in-memory service and the id of
// one stored assessment.
func seeded(t *testing.T, email string) (Opener, string, *channel.Simulation) {
	t.Helper()
	color.NoColor = true

	sim := channel.NewSimulation(true, false, channel.WithSimulationLogger(logger.Nop()))
	svc := app.New(app.WithLogger(logger.Nop()), app.WithChannels(sim), app.WithEmailEnabled(false))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	answers := questionnaire.Answers{}
	for _, id := range questionnaire.Default().ItemIDs() {
		answers[id] = questionnaire.Agree
	}
	res, err := svc.Submit(context.Background(), app.Submission{
		Participant: model.Participant{Name: "Ana", Organization: "North", Email: email},
		Answers:     answers,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	t.Cleanup(svc.Stop)

	open := func(context.Context) (*app.Service, error) { return svc, nil }
	return open, res.ID, sim
}

func run(t *testing.T, open Opener, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestShowCommand(t *testing.T) {
	open, id, _ := seeded(t, "ana@example.com")

	out, err := run(t, open, "show", id)
	if err != nil {
		t.Fatalf("show failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Assessment " + id, "=== TOP 3 ===", "Ana", "North"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestShowCommand_NotFound(t *testing.T) {
	open, _, _ := seeded(t, "")
	if _, err := run(t, open, "show", "missing"); err == nil {
		t.Fatal("expected an error for an unknown id")
	}
}

func TestResendCommand(t *testing.T) {
	open, id, sim := seeded(t, "ana@example.com")

	out, err := run(t, open, "resend", id, "--to", "bo@example.com")
	if err != nil {
		t.Fatalf("resend failed: %v\n%s", err, out)
	}
	if !bytes.Contains([]byte(out), []byte("SUCCESS to bo@example.com via simulation")) {
		t.Errorf("unexpected output: %s", out)
	}
	if got := len(sim.Sent()); got != 1 {
		t.Errorf("sent %d messages, want 1", got)
	}
}

func TestResendCommand_NoAddress(t *testing.T) {
	open, id, _ := seeded(t, "")

	out, err := run(t, open, "resend", id)
	if err == nil {
		t.Fatal("expected an error without an address")
	}
	if !bytes.Contains([]byte(out), []byte("NO_ADDRESS")) {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestInsightsCommand(t *testing.T) {
	open, _, _ := seeded(t, "")

	out, err := run(t, open, "insights", "--limit", "10")
	if err != nil {
		t.Fatalf("insights failed: %v\n%s", err, out)
	}
	if !bytes.Contains([]byte(out), []byte("Insights over 1 assessments")) {
		t.Errorf("unexpected output: %s", out)
	}
	if !bytes.Contains([]byte(out), []byte("CATEGORY")) {
		t.Errorf("missing table header: %s", out)
	}
}
