package rpc

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/soffa-projects/jobrpc/errors"
	"github.com/soffa-projects/jobrpc/log"
)

type RetryOptions struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Randomization   float64
	// MaxAttempts counts the first try. 1 disables retrying.
	MaxAttempts int
	// ForceOnBusy resubmits with force=1 after a busy failure.
	ForceOnBusy *bool
	// WaitGrowth multiplies the wait budget after a timeout-shaped failure,
	// up to MaxWaitCeiling.
	WaitGrowth     float64
	MaxWaitCeiling time.Duration
}

func DefaultRetryOptions() RetryOptions {
	return RetryOptions{}.withDefaults()
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.InitialInterval <= 0 {
		o.InitialInterval = 500 * time.Millisecond
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 8 * time.Second
	}
	if o.Multiplier <= 0 {
		o.Multiplier = 2
	}
	if o.Randomization <= 0 || o.Randomization >= 1 {
		o.Randomization = 0.2
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.ForceOnBusy == nil {
		force := true
		o.ForceOnBusy = &force
	}
	if o.WaitGrowth < 1 {
		o.WaitGrowth = 1.5
	}
	if o.MaxWaitCeiling <= 0 {
		o.MaxWaitCeiling = 10 * time.Minute
	}
	return o
}

func (o RetryOptions) backOff(ctx context.Context, attempts int) backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = o.InitialInterval
	expo.MaxInterval = o.MaxInterval
	expo.Multiplier = o.Multiplier
	expo.RandomizationFactor = o.Randomization
	expo.MaxElapsedTime = 0
	expo.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(expo, uint64(attempts-1)), ctx)
}

type CallOptions struct {
	Force      bool
	JobTimeout time.Duration
	MaxWait    time.Duration
	// IdempotencyKey identifies the logical call. A random one is used when empty.
	IdempotencyKey string
	// MaxAttempts overrides the client's retry ceiling when > 0.
	MaxAttempts int
}

// Call runs method with retries. Transport failures, busy servers and
// timeout-shaped failures are retried with exponential backoff; anything
// else is returned at once. A busy retry resubmits with force, a timeout
// retry waits longer. When an idempotency store is configured, a retry
// after a lost connection resumes polling the job it was already given
// instead of enqueueing the command twice.
func (c *Client) Call(ctx context.Context, method string, params map[string]any, opts CallOptions) (Result, error) {
	retry := c.opts.Retry
	attempts := retry.MaxAttempts
	if opts.MaxAttempts > 0 {
		attempts = opts.MaxAttempts
	}

	key := opts.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	req := c.NewRequest(method, params)
	req.IdempotencyKey = key

	force := opts.Force
	maxWait := opts.MaxWait
	attempt := 0
	operation := func() (Result, error) {
		attempt++
		result, err := c.attempt(ctx, &req, force, opts.JobTimeout, maxWait)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil || !errors.Retryable(err) {
			return nil, backoff.Permanent(err)
		}
		switch errors.KindOf(err) {
		case errors.KindBusy:
			if *retry.ForceOnBusy {
				force = true
			}
			c.forget(ctx, req.IdempotencyKey)
			req.IdempotencyKey = uuid.NewString()
		case errors.KindServerTimeout:
			maxWait = retry.grow(maxWait, c.opts.MaxWait)
			c.forget(ctx, req.IdempotencyKey)
			req.IdempotencyKey = uuid.NewString()
		case errors.KindJobTimeout:
			maxWait = retry.grow(maxWait, c.opts.MaxWait)
		}
		return nil, err
	}
	notify := func(err error, next time.Duration) {
		log.With(map[string]any{
			"method":  method,
			"attempt": attempt,
			"kind":    string(errors.KindOf(err)),
		}).Warnf("%v; retrying in %s", err, next.Round(time.Millisecond))
	}

	result, err := backoff.RetryNotifyWithData(operation, retry.backOff(ctx, attempts), notify)
	if err != nil {
		if _, ok := errors.AsRpcError(err); !ok {
			return nil, errors.Transport(errors.PhasePoll, err)
		}
		return nil, err
	}
	return result, nil
}

// attempt is one submit-and-wait pass. It resumes a recorded job when
// possible and keeps the record until the job settles.
func (c *Client) attempt(ctx context.Context, req *Request, force bool, jobTimeout time.Duration, maxWait time.Duration) (Result, error) {
	sub := Submission{JobID: c.recall(ctx, req.IdempotencyKey)}
	if sub.JobID != "" && !force {
		log.Info("resuming job %s for %s", sub.JobID, req.Method)
	} else {
		var err error
		sub, err = c.Submit(ctx, *req, SubmitOptions{Force: force, JobTimeout: jobTimeout})
		if err != nil {
			return nil, err
		}
		if sub.Immediate != nil {
			return sub.Immediate, nil
		}
		c.remember(ctx, req.IdempotencyKey, sub.JobID)
	}

	result, err := c.Wait(ctx, sub, WaitOptions{MaxWait: maxWait})
	switch errors.KindOf(err) {
	case errors.KindTransport, errors.KindJobTimeout:
		// the job may still be running, keep it for the next attempt
	default:
		c.forget(ctx, req.IdempotencyKey)
	}
	return result, err
}

func (c *Client) recall(ctx context.Context, key string) string {
	if c.opts.Idempotency == nil {
		return ""
	}
	jobID, err := c.opts.Idempotency.Get(ctx, key)
	if err != nil {
		log.Warn("idempotency lookup for %s failed: %v", key, err)
		return ""
	}
	return jobID
}

func (c *Client) remember(ctx context.Context, key string, jobID string) {
	if c.opts.Idempotency == nil || jobID == "" {
		return
	}
	if err := c.opts.Idempotency.Set(ctx, key, jobID); err != nil {
		log.Warn("failed to record job %s: %v", jobID, err)
	}
}

func (c *Client) forget(ctx context.Context, key string) {
	if c.opts.Idempotency == nil {
		return
	}
	if err := c.opts.Idempotency.Delete(ctx, key); err != nil {
		log.Warn("failed to drop idempotency key %s: %v", key, err)
	}
}

// grow lengthens the wait budget, starting from fallback when none was set.
func (o RetryOptions) grow(current time.Duration, fallback time.Duration) time.Duration {
	if current <= 0 {
		current = fallback
	}
	next := time.Duration(float64(current) * o.WaitGrowth)
	if next > o.MaxWaitCeiling {
		next = o.MaxWaitCeiling
	}
	return next
}
