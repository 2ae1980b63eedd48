package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkworks/folio/internal/recognize"
	"github.com/inkworks/folio/pkg/logger"
)

// pageState is the per-page processing state.
type pageState int

const (
	stateAttempting pageState = iota
	stateWaitingForQuota
	stateSucceeded
	stateFailed
)

// PageExhaustedError is terminal for a page: the counted attempt budget is
// spent. The driver halts the whole run on it.
type PageExhaustedError struct {
	Page     int
	Attempts int
	Cause    error
}

func (e *PageExhaustedError) Error() string {
	return fmt.Sprintf("page %d failed after %d attempts: %v", e.Page, e.Attempts, e.Cause)
}

func (e *PageExhaustedError) Unwrap() error {
	return e.Cause
}

// Controller drives one page's processing attempts. Quota exhaustion is a
// global, time-bounded condition unrelated to the page, so quota waits
// never consume the attempt budget; every other failure does, because a
// structurally broken page must not be retried forever.
type Controller struct {
	maxAttempts      int
	defaultQuotaWait time.Duration
	logger           logger.Logger

	// OnQuotaWait, when set, is invoked before each quota sleep.
	OnQuotaWait func(page int, wait time.Duration)

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewController(maxAttempts int, defaultQuotaWait time.Duration, log logger.Logger) *Controller {
	return &Controller{
		maxAttempts:      maxAttempts,
		defaultQuotaWait: defaultQuotaWait,
		logger:           log,
		sleep:            sleepCtx,
	}
}

// Run executes attempt until it succeeds, the attempt budget is spent, or
// a non-retryable condition surfaces. Each call to attempt is a full page
// pass including a fresh context-window render.
func (c *Controller) Run(ctx context.Context, page int, attempt func(ctx context.Context) error) error {
	attempts := 1
	state := stateAttempting

	for state == stateAttempting {
		err := attempt(ctx)
		if err == nil {
			state = stateSucceeded
			return nil
		}

		var quota *recognize.QuotaError
		switch {
		case errors.As(err, &quota):
			state = stateWaitingForQuota
			wait := quota.RetryAfter
			if wait <= 0 {
				wait = c.defaultQuotaWait
			}
			c.logger.Warn("Recognition quota exhausted, waiting",
				logger.Int("page", page),
				logger.Duration("wait", wait),
				logger.Int("attempt", attempts),
			)
			if c.OnQuotaWait != nil {
				c.OnQuotaWait(page, wait)
			}
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
			// Back to attempting without touching the counter.
			state = stateAttempting

		case errors.Is(err, recognize.ErrMissingCredential),
			errors.Is(err, context.Canceled),
			errors.Is(err, context.DeadlineExceeded):
			return err

		default:
			c.logger.Warn("Page attempt failed",
				logger.Int("page", page),
				logger.Int("attempt", attempts),
				logger.Error(err),
			)
			attempts++
			if attempts > c.maxAttempts {
				state = stateFailed
				return &PageExhaustedError{
					Page:     page,
					Attempts: c.maxAttempts,
					Cause:    err,
				}
			}
		}
	}

	return nil
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
