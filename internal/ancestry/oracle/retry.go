package oracle

import (
	"context"
	"time"

	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/model"
	"github.com/goodnatureofminers/txancestry-backend/internal/clock"
	"go.uber.org/zap"
)

// Retrying retries retryable failures of the wrapped oracle with exponential backoff.
type Retrying struct {
	next     Oracle
	attempts int
	backoff  time.Duration
	sleep    func(context.Context, time.Duration) error
	logger   *zap.Logger
}

// NewRetrying wraps next. attempts counts the first call; values below one mean one.
func NewRetrying(next Oracle, attempts int, backoff time.Duration, logger *zap.Logger) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{
		next:     next,
		attempts: attempts,
		backoff:  backoff,
		sleep:    clock.SleepWithContext,
		logger:   logger,
	}
}

// Resolve calls the wrapped oracle until it succeeds, fails permanently or runs out of attempts.
func (r *Retrying) Resolve(ctx context.Context, txid string) (*model.Transaction, error) {
	for attempt := 1; ; attempt++ {
		tx, err := r.next.Resolve(ctx, txid)
		if err == nil || !IsRetryable(err) || attempt >= r.attempts {
			return tx, err
		}

		delay := clock.Backoff(r.backoff, attempt)
		r.logger.Warn("oracle call failed, retrying",
			zap.String("txid", txid),
			zap.Int("attempt", attempt),
			zap.Duration("sleep", delay),
			zap.Error(err),
		)
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return nil, sleepErr
		}
	}
}
