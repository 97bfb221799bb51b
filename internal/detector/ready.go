package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ayusman/touchless/internal/logging"
)

// Default detector warm-up budget
const (
	DefaultInitAttempts = 5
	DefaultInitInterval = time.Second
)

// WaitReady blocks until det reports ready, trying at most attempts times
// with interval between tries. Detectors that do not implement Readier are
// ready immediately. Exhausting the budget or cancelling ctx yields an error
// wrapping ErrDetectorInitFailed.
func WaitReady(ctx context.Context, det Detector, attempts int, interval time.Duration, log logging.Logger) error {
	r, ok := det.(Readier)
	if !ok {
		return nil
	}
	if attempts < 1 {
		attempts = 1
	}
	if log == nil {
		log = logging.Nop()
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(interval)
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	tries := 0
	op := func() error {
		tries++
		return r.Ready(ctx)
	}
	notify := func(err error, next time.Duration) {
		log.Warnf("detector not ready (attempt %d/%d): %v; retrying in %s", tries, attempts, err, next)
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return fmt.Errorf("%w after %d attempts: %w", ErrDetectorInitFailed, tries, err)
	}
	return nil
}
