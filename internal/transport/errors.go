package transport

import (
	"errors"
	"fmt"
	"time"
)

// ErrRecipientUnreachable marks a permanent recipient-side failure: the user
// blocked the bot, deleted their account, or never started a chat with it.
// Callers must not retry.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

// RateLimitError reports a platform-mandated wait before the send may be
// retried.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// AsRateLimit extracts the mandated wait from err, if it carries one.
func AsRateLimit(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}

// IsUnreachable reports whether err is a permanent recipient-side failure.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrRecipientUnreachable)
}
