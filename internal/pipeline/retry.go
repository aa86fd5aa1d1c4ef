package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/hfepa/internal/webhook"
)

// MaxRetries is the number of delivery attempts per callback.
const MaxRetries = 3

const (
	baseDeliveryDelay = 500 * time.Millisecond
	maxDeliveryDelay  = 30 * time.Second
)

// IsRetryable reports whether a delivery failure is transient.
func IsRetryable(err error) bool {
	var retryErr *webhook.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns how long to wait after failed delivery attempt n
// (0-indexed). A Retry-After from the receiver wins over the exponential
// schedule; both are capped at maxDeliveryDelay.
func Backoff(err error, attempt int) time.Duration {
	var retryErr *webhook.RetryableError
	if errors.As(err, &retryErr) && retryErr.RetryAfter > 0 {
		return min(retryErr.RetryAfter, maxDeliveryDelay)
	}

	base := baseDeliveryDelay << uint(min(attempt, 16))
	if base > maxDeliveryDelay {
		base = maxDeliveryDelay
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return min(base+jitter, maxDeliveryDelay)
}
