package feed

import "time"

// ReconnectPolicy computes the delay before the next connection
// attempt. A bounded policy (MaxAttempts > 0) waits BaseDelay times
// the attempt number and gives up after MaxAttempts consecutive
// failures; an unbounded policy (MaxAttempts == 0) retries forever at
// a fixed BaseDelay.
type ReconnectPolicy struct {
	BaseDelay   time.Duration
	MaxAttempts int
}

// DefaultReconnectPolicy returns the bounded variant: 5 attempts with
// 1s, 2s, 3s, 4s, 5s delays.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		BaseDelay:   1 * time.Second,
		MaxAttempts: 5,
	}
}

// Delay returns the wait before attempt n (first attempt is n=1) and
// whether the attempt should be made at all. ok is false once the
// bounded attempt budget is exhausted.
func (p ReconnectPolicy) Delay(n int) (delay time.Duration, ok bool) {
	if n < 1 {
		n = 1
	}
	if p.MaxAttempts == 0 {
		return p.BaseDelay, true
	}
	if n > p.MaxAttempts {
		return 0, false
	}
	return p.BaseDelay * time.Duration(n), true
}
