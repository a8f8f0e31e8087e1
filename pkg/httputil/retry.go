package httputil

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/matzehuels/macroviewer/pkg/cache"
)

// StatusError is a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Is maps 404 to [cache.ErrNotFound] and transient codes to
// [cache.ErrNetwork].
func (e *StatusError) Is(target error) bool {
	switch target {
	case cache.ErrNotFound:
		return e.Code == http.StatusNotFound
	case cache.ErrNetwork:
		return e.Transient()
	}
	return false
}

// Transient reports whether retrying the request may succeed.
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Retry executes fn up to attempts times with exponential backoff.
// It only retries errors wrapped with [cache.Retryable]; other errors are
// returned immediately. Returns the last error if all attempts fail, or
// ctx.Err() if cancelled.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	return cache.Backoff{Attempts: attempts, Delay: delay}.Retry(ctx, fn)
}

// classify wraps transient failures so [Retry] tries again.
func classify(err error) error {
	if se, ok := err.(*StatusError); ok && !se.Transient() {
		return err
	}
	return cache.Retryable(err)
}
