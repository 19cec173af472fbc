package utils

import (
	"time"

	"alert-service/internal/logging"
)

// Retry runs fn up to maxAttempts times, sleeping delay between attempts,
// as long as retryable reports the last error as worth retrying. The last
// error is returned unwrapped so callers can still classify it.
func Retry(logger *logging.Logger, maxAttempts int, delay time.Duration, retryable func(error) bool, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt < maxAttempts {
			logger.Warnf("Attempt %d/%d failed, retrying: %v", attempt, maxAttempts, lastErr)
			if delay > 0 {
				time.Sleep(delay)
			}
		}
	}
	logger.Errorf("Giving up after %d attempts: %v", maxAttempts, lastErr)
	return lastErr
}
