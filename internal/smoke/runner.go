package smoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/okian/dons/internal/domain/questionnaire"
	"github.com/okian/dons/internal/domain/scoring"
	"github.com/okian/dons/pkg/logger"
)

const directoryPermission = 0o750

// ErrVerification reports that the service disagreed with the local engine
// or lost a record.
var ErrVerification = errors.New("smoke verification failed")

// Run executes the complete smoke test.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	log.Info(ctx, "starting smoke run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("submissions", cfg.Submissions),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	if err := checkServiceHealth(ctx, client, log); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	bank := questionnaire.Default()
	subs := Generate(cfg, bank, cfg.Submissions)
	stats.Generated = len(subs)

	if err := submitAll(ctx, cfg, client, bank, subs, stats, log); err != nil {
		return stats, err
	}

	if cfg.OutputFile != "" {
		if err := saveSubmissions(cfg.OutputFile, subs); err != nil {
			log.Warn(ctx, "failed to save submissions", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats, log)

	if stats.Failed > 0 || stats.Mismatched > 0 || stats.ReadBack != stats.Created+stats.Duplicate {
		return stats, fmt.Errorf("%w: %d failed, %d mismatched, %d/%d read back",
			ErrVerification, stats.Failed, stats.Mismatched, stats.ReadBack, stats.Created+stats.Duplicate)
	}
	log.Info(ctx, "smoke run completed successfully")
	return stats, nil
}

func checkServiceHealth(ctx context.Context, client *HTTPClient, log logger.Logger) error {
	status, _, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", status)
	}
	log.Info(ctx, "service is healthy")
	return nil
}

// submitAll posts every submission, verifies the ranking and reads the
// record back. Individual failures are counted, not returned.
func submitAll(ctx context.Context, cfg *Config, client *HTTPClient, bank *questionnaire.Bank, subs []Submission, stats *Stats, log logger.Logger) error {
	var submitted, created, duplicate, failed, verified, mismatched, readBack atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, sub := range subs {
		g.Go(func() error {
			want := scoring.Score(toAnswers(sub.Answers), bank.Categories())

			status, body, err := client.Post(gctx, "/assessments", sub)
			submitted.Add(1)
			switch {
			case err != nil:
				failed.Add(1)
				log.Warn(gctx, "submit failed", logger.String("submission", sub.SubmissionID), logger.Error(err))
				return nil
			case status == http.StatusCreated:
				created.Add(1)
			case status == http.StatusOK:
				duplicate.Add(1)
			default:
				failed.Add(1)
				log.Warn(gctx, "submit rejected",
					logger.String("submission", sub.SubmissionID),
					logger.Int("status", status),
					logger.String("body", string(body)))
				return nil
			}

			if err := verifyRanking(want, body); err != nil {
				mismatched.Add(1)
				log.Error(gctx, "ranking mismatch", logger.String("submission", sub.SubmissionID), logger.Error(err))
				return nil
			}
			verified.Add(1)

			id := gjson.GetBytes(body, "id").String()
			status, body, err = client.Get(gctx, "/assessments/"+id)
			if err != nil || status != http.StatusOK {
				log.Warn(gctx, "read back failed", logger.String("assessment", id), logger.Int("status", status))
				return nil
			}
			if gjson.GetBytes(body, "submission_id").String() != sub.SubmissionID || verifyRanking(want, body) != nil {
				mismatched.Add(1)
				log.Error(gctx, "stored record differs", logger.String("assessment", id))
				return nil
			}
			readBack.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats.Submitted = int(submitted.Load())
	stats.Created = int(created.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Failed = int(failed.Load())
	stats.Verified = int(verified.Load())
	stats.Mismatched = int(mismatched.Load())
	stats.ReadBack = int(readBack.Load())
	return ctx.Err()
}

func saveSubmissions(filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal submissions: %w", err)
	}
	return os.WriteFile(filename, data, 0o600)
}

func displayFinalStats(ctx context.Context, stats *Stats, log logger.Logger) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("created", stats.Created),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("verified", stats.Verified),
		logger.Int("mismatched", stats.Mismatched),
		logger.Int("readBack", stats.ReadBack),
		logger.Duration("duration", stats.Duration),
		logger.Float64("submissionsPerSecond", perSecond))
}
