package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/dons/internal/smoke"
	"github.com/okian/dons/pkg/logger"
)

// Default configuration constants.
const (
	defaultSubmissions = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		submissions  = flag.Int("n", defaultSubmissions, "Number of assessments to submit")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		organization = flag.String("org", "Smoke", "Organization for generated participants")
		withEmail    = flag.Bool("email", false, "Attach a participant address to each submission")
		seed         = flag.Int64("seed", time.Now().UnixNano(), "Seed for generated answers")
		outputFile   = flag.String("output", "", "Write generated submissions to this JSON file")
		logFormat    = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	if err := logger.InitWithFormat(*logFormat, os.Stdout); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	cfg := &smoke.Config{
		BaseURL:      *baseURL,
		Submissions:  *submissions,
		Workers:      *workers,
		Timeout:      *timeout,
		Organization: *organization,
		WithEmail:    *withEmail,
		Seed:         *seed,
		OutputFile:   *outputFile,
	}
	os.Exit(run(cfg))
}

func run(cfg *smoke.Config) int {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := smoke.Run(ctx, cfg, logger.Named("smoke")); err != nil {
		logger.Get().Error(ctx, "smoke run failed", logger.Error(err))
		return 1
	}
	return 0
}
