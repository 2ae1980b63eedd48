package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkworks/folio/internal/recognize"
	"github.com/inkworks/folio/pkg/logger"
)

// newTestController returns a controller whose quota sleeps are recorded
// instead of slept.
func newTestController(maxAttempts int, defaultWait time.Duration) (*Controller, *[]time.Duration) {
	c := NewController(maxAttempts, defaultWait, logger.NewTestLogger())
	waits := &[]time.Duration{}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	return c, waits
}

func TestRunSucceedsFirstAttempt(t *testing.T) {
	c, waits := newTestController(3, 20*time.Second)

	calls := 0
	err := c.Run(context.Background(), 1, func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *waits)
}

func TestQuotaWaitsDoNotConsumeAttemptBudget(t *testing.T) {
	c, waits := newTestController(3, 20*time.Second)

	calls := 0
	err := c.Run(context.Background(), 2, func(ctx context.Context) error {
		calls++
		if calls <= 2 {
			return &recognize.QuotaError{RetryAfter: 5 * time.Second}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, *waits)
}

func TestQuotaWaitUsesDefaultWhenUnspecified(t *testing.T) {
	c, waits := newTestController(3, 20*time.Second)

	calls := 0
	err := c.Run(context.Background(), 1, func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &recognize.QuotaError{}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{20 * time.Second}, *waits)
}

func TestCountedFailuresExhaustAfterMaxAttempts(t *testing.T) {
	c, waits := newTestController(3, 20*time.Second)

	cause := &recognize.ServiceError{StatusCode: 500, Message: "boom"}
	calls := 0
	err := c.Run(context.Background(), 4, func(ctx context.Context) error {
		calls++
		return cause
	})

	var exhausted *PageExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Page)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, error(cause))
	assert.Equal(t, 3, calls, "no further attempts after the budget is spent")
	assert.Empty(t, *waits, "counted failures never sleep")
}

func TestSucceedsOnFinalAttempt(t *testing.T) {
	c, _ := newTestController(3, 20*time.Second)

	calls := 0
	err := c.Run(context.Background(), 2, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &recognize.ServiceError{Message: "transient"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestQuotaThenCountedFailuresMixed(t *testing.T) {
	// Quota waits in between counted failures must not extend the budget.
	c, waits := newTestController(2, time.Second)

	var sequence = []error{
		&recognize.ServiceError{Message: "fault"},
		&recognize.QuotaError{RetryAfter: 3 * time.Second},
		&recognize.ServiceError{Message: "fault"},
	}
	calls := 0
	err := c.Run(context.Background(), 1, func(ctx context.Context) error {
		defer func() { calls++ }()
		if calls < len(sequence) {
			return sequence[calls]
		}
		return nil
	})

	var exhausted *PageExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{3 * time.Second}, *waits)
}

func TestMissingCredentialIsNotRetried(t *testing.T) {
	c, _ := newTestController(3, time.Second)

	calls := 0
	err := c.Run(context.Background(), 1, func(ctx context.Context) error {
		calls++
		return recognize.ErrMissingCredential
	})

	assert.ErrorIs(t, err, recognize.ErrMissingCredential)
	assert.Equal(t, 1, calls)
}

func TestCancellationInterruptsQuotaWait(t *testing.T) {
	c := NewController(3, time.Minute, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := c.Run(ctx, 1, func(ctx context.Context) error {
		calls++
		return &recognize.QuotaError{RetryAfter: time.Minute}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 10*time.Second, "cancellation must interrupt the sleep")
}

func TestCancelledContextStopsRun(t *testing.T) {
	c, _ := newTestController(3, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx, 1, func(ctx context.Context) error {
		return ctx.Err()
	})
	assert.True(t, errors.Is(err, context.Canceled))
}
