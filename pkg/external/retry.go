package external

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Retry executes an operation with bounded exponential backoff, consulting
// the classifier for a retryability verdict after each failure.
type Retry struct {
	// Retries is the number of retries after the first attempt, so an
	// operation runs at most Retries+1 times.
	Retries    int
	MinTimeout time.Duration
	MaxTimeout time.Duration
	Factor     float64

	// Retryable overrides the classified default verdict when set.
	Retryable func(*Error) bool

	// sleep is swapped in tests.
	sleep func(time.Duration)
}

// DefaultRetry returns the retry policy used for brokerage calls.
func DefaultRetry(retries int, minTimeout, maxTimeout time.Duration, factor float64) Retry {
	return Retry{
		Retries:    retries,
		MinTimeout: minTimeout,
		MaxTimeout: maxTimeout,
		Factor:     factor,
	}
}

// backoff returns the delay before retry number attempt (first retry is 1).
func (r Retry) backoff(attempt int) time.Duration {
	d := float64(r.MinTimeout)
	for i := 1; i < attempt; i++ {
		d *= r.Factor
	}
	delay := time.Duration(d)
	if delay > r.MaxTimeout {
		return r.MaxTimeout
	}
	return delay
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// retry budget is exhausted. The returned error is always a classified
// *Error with Attempts set to the total number of attempts made.
func (r Retry) Do(ctx context.Context, provider, operation string, op func() error) error {
	logger := log.With().
		Str("provider", provider).
		Str("operation", operation).
		Logger()

	var classified *Error
	for attempt := 1; attempt <= r.Retries+1; attempt++ {
		err := op()
		if err == nil {
			if attempt > 1 {
				logger.Info().Int("attempt", attempt).Msg("external call succeeded after retry")
			}
			return nil
		}

		classified = Classify(provider, err)
		classified.Attempts = attempt

		retryable := classified.Retryable()
		if r.Retryable != nil {
			retryable = r.Retryable(classified)
		}

		logger.Warn().
			Int("attempt", attempt).
			Str("kind", classified.Kind.String()).
			Bool("retryable", retryable).
			Err(err).
			Msg("external call failed")

		if !retryable || attempt > r.Retries {
			return classified
		}

		delay := r.backoff(attempt)
		logger.Debug().Dur("backoff", delay).Msg("backing off before retry")
		if err := r.wait(ctx, delay); err != nil {
			classified = Classify(provider, err)
			classified.Attempts = attempt
			return classified
		}
	}

	return classified
}

// wait blocks for delay or until ctx is done, whichever comes first. A
// test-injected sleep is honoured in full, then the context is checked.
func (r Retry) wait(ctx context.Context, delay time.Duration) error {
	if r.sleep != nil {
		r.sleep(delay)
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
