package rpc

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Step applies Interval to every attempt below UntilAttempt. A zero
// UntilAttempt matches all remaining attempts.
type Step struct {
	UntilAttempt int
	Interval     time.Duration
}

// Schedule maps a poll attempt number to the pause before the next poll.
type Schedule []Step

// DefaultSchedule polls fast while a job is likely to finish soon and
// relaxes as it keeps running.
var DefaultSchedule = Schedule{
	{UntilAttempt: 6, Interval: 150 * time.Millisecond},
	{UntilAttempt: 20, Interval: 500 * time.Millisecond},
	{UntilAttempt: 100, Interval: time.Second},
	{Interval: 2 * time.Second},
}

func (s Schedule) Interval(attempt int) time.Duration {
	if len(s) == 0 {
		return DefaultSchedule.Interval(attempt)
	}
	for _, step := range s {
		if step.UntilAttempt == 0 || attempt < step.UntilAttempt {
			return step.Interval
		}
	}
	return s[len(s)-1].Interval
}

// retryAfter parses a Retry-After header given as delta seconds
// (fractions allowed) or as an HTTP date.
func retryAfter(header http.Header, now time.Time) (time.Duration, bool) {
	value := strings.TrimSpace(header.Get("Retry-After"))
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
