package notify

import (
	"context"
	"time"
)

// WithSleep replaces the pacing wait.
func WithSleep(f func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) {
		o.sleep = f
	}
}
