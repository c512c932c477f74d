package rpc

import (
	"context"
	"fmt"
	"time"

	f "github.com/soffa-projects/jobrpc/core"
)

const (
	DefaultMaxWait     = 120 * time.Second
	DefaultMaxAttempts = 240
	// attemptUnit converts a caller max-wait into an attempt budget.
	attemptUnit = 500 * time.Millisecond
)

type Options struct {
	// BaseURL wins over Host and Port when set.
	BaseURL string
	Host    string
	Port    int

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	Schedule    Schedule
	MaxWait     time.Duration
	MaxAttempts int
	Policy      *Policy
	ListKeys    []string
	Retry       RetryOptions

	// Idempotency lets a retried call resume the job it was already given.
	Idempotency f.IdempotencyStore

	// Observer sees the cursor after every poll.
	Observer func(Cursor)

	// Sleep waits between polls. It must return early with ctx.Err() when
	// ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Client runs commands against one automation server. It is safe for
// concurrent use; every call owns its own poll cursor.
type Client struct {
	transport *Transport
	opts      Options
	policy    Policy
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		host := opts.Host
		if host == "" {
			host = "127.0.0.1"
		}
		opts.BaseURL = fmt.Sprintf("http://%s:%d", host, opts.Port)
	}
	if len(opts.Schedule) == 0 {
		opts.Schedule = DefaultSchedule
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if len(opts.ListKeys) == 0 {
		opts.ListKeys = DefaultListKeys
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Retry = opts.Retry.withDefaults()
	policy := DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	return &Client{
		transport: NewTransport(TransportConfig{
			BaseURL:        opts.BaseURL,
			ConnectTimeout: opts.ConnectTimeout,
			ReadTimeout:    opts.ReadTimeout,
		}),
		opts:   opts,
		policy: policy,
	}
}

func (c *Client) BaseURL() string {
	return c.opts.BaseURL
}

// NewRequest builds a request normalized with the client's list keys.
func (c *Client) NewRequest(method string, params map[string]any) Request {
	return NewRequest(method, params, c.opts.ListKeys...)
}

// Execute submits req once and waits for its outcome, without retrying.
func (c *Client) Execute(ctx context.Context, req Request, submit SubmitOptions, wait WaitOptions) (Result, error) {
	sub, err := c.Submit(ctx, req, submit)
	if err != nil {
		return nil, err
	}
	if sub.Immediate != nil {
		return sub.Immediate, nil
	}
	return c.Wait(ctx, sub, wait)
}

// budget converts a caller max-wait into wall clock and attempt limits.
func (c *Client) budget(maxWait time.Duration) (time.Duration, int) {
	if maxWait <= 0 {
		return c.opts.MaxWait, c.opts.MaxAttempts
	}
	attempts := int(maxWait / attemptUnit)
	if attempts < 1 {
		attempts = 1
	}
	return maxWait, attempts
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
