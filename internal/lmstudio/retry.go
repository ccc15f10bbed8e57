package lmstudio

import "time"

// RetryPolicy controls how Analyze retries transient failures
// (connection errors, timeouts, and 5xx statuses).
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts. Values below 1 mean 1.
	MaxAttempts int
	// InitialBackoff is the wait before the second attempt. It doubles after each retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the wait between attempts. 0 = no cap.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy makes a single attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1, InitialBackoff: 2 * time.Second, MaxBackoff: 30 * time.Second}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// backoff returns the wait before attempt n (n >= 2).
func (p RetryPolicy) backoff(n int) time.Duration {
	d := p.InitialBackoff
	for i := 2; i < n; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}
