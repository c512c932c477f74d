package rpc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/soffa-projects/jobrpc/errors"
	"github.com/soffa-projects/jobrpc/h"
	"github.com/soffa-projects/jobrpc/log"
)

// Cursor is the state of one wait loop. It belongs to that loop alone.
type Cursor struct {
	JobID    string
	ETag     string
	Attempts int
	Elapsed  time.Duration
	// Last is the most recent decoded snapshot. A 304 leaves it untouched.
	Last *Snapshot
	// LastStatus is the HTTP status of the most recent poll.
	LastStatus int
}

type WaitOptions struct {
	// MaxWait replaces the default budget. The attempt ceiling becomes
	// MaxWait / 500ms, at least 1.
	MaxWait time.Duration
}

// Wait polls until the submitted job reaches a terminal state or the budget
// runs out. Running out raises a job_timeout error and leaves the remote
// job alone.
func (c *Client) Wait(ctx context.Context, sub Submission, opts WaitOptions) (Result, error) {
	if sub.Immediate != nil {
		return sub.Immediate, nil
	}
	maxElapsed, maxAttempts := c.budget(opts.MaxWait)
	path := "/get_result"
	if sub.JobID != "" {
		path = "/job/" + url.PathEscape(sub.JobID)
	}

	cursor := Cursor{JobID: sub.JobID}
	start := c.opts.Now()
	target := "job " + sub.JobID
	if sub.JobID == "" {
		target = "/get_result"
	}
	timedOut := func() error {
		cursor.Elapsed = c.opts.Now().Sub(start)
		return errors.JobTimeout(fmt.Sprintf("Polling timed out for %s after %.1f sec (%d attempts).",
			target, cursor.Elapsed.Seconds(), cursor.Attempts))
	}

	// both the GETs and the sleeps between them stop at the budget
	pollCtx, cancel := context.WithTimeout(ctx, maxElapsed)
	defer cancel()
	failed := func(err error) error {
		if ctx.Err() == nil && pollCtx.Err() != nil {
			return timedOut()
		}
		return errors.Transport(errors.PhasePoll, err)
	}

	for cursor.Attempts < maxAttempts {
		headers := map[string]string{}
		if cursor.ETag != "" {
			headers["If-None-Match"] = cursor.ETag
		}
		res, err := c.transport.get(pollCtx, path, headers)
		if err != nil {
			return nil, failed(err)
		}
		cursor.LastStatus = res.Status

		delay := c.opts.Schedule.Interval(cursor.Attempts)
		if d, ok := retryAfter(res.Header, c.opts.Now()); ok {
			delay = d
		}

		switch {
		case res.Status == http.StatusNotModified,
			res.Status == http.StatusAccepted,
			res.Status == http.StatusNoContent:
			// not ready, or unchanged since the last snapshot
		case res.Status >= 400:
			return nil, c.policy.protocol(httpFailure(errors.PhasePoll, res))
		default:
			if etag := res.Header.Get("ETag"); etag != "" {
				cursor.ETag = etag
			}
			result, done, err := c.interpret(&cursor, sub, res)
			if done || err != nil {
				c.observe(cursor)
				return result, err
			}
		}

		cursor.Attempts++
		cursor.Elapsed = c.opts.Now().Sub(start)
		c.observe(cursor)
		if cursor.Elapsed >= maxElapsed || cursor.Attempts >= maxAttempts {
			break
		}
		if remaining := maxElapsed - cursor.Elapsed; delay > remaining {
			delay = remaining
		}
		log.Debug("job %s not finished (attempt %d, status %d), next poll in %s", sub.JobID, cursor.Attempts, res.Status, delay)
		if err := c.opts.Sleep(pollCtx, delay); err != nil {
			return nil, failed(err)
		}
	}
	return nil, timedOut()
}

// interpret handles a 2xx poll body. done is false when the job is still
// running.
func (c *Client) interpret(cursor *Cursor, sub Submission, res *response) (Result, bool, error) {
	payload, ok := h.DecodeObject(res.Body)
	if !ok {
		if _, isJSON := h.DecodeAny(res.Body); isJSON {
			return nil, true, errors.Protocol(errors.PhasePoll, res.Status, "",
				fmt.Sprintf("Unexpected payload shape: %s", truncate(string(res.Body), 512)), nil)
		}
		return nil, true, errors.Protocol(errors.PhasePoll, res.Status, "",
			fmt.Sprintf("Invalid JSON body; body=%s", truncate(string(res.Body), 512)), nil)
	}
	body := h.NewJsonBytes(res.Body)

	if f, ok := rpcError(errors.PhasePoll, res.Status, body, payload); ok {
		return nil, true, c.policy.protocol(f)
	}

	if sub.JobID != "" && body.String("state") != "" {
		snap := snapshotOf(body, payload)
		cursor.Last = snap
		switch {
		case snap.State == StateSucceeded:
			return DecodeSucceeded(snap), true, nil
		case snap.State.Terminal():
			return nil, true, c.policy.terminal(snap.State, failure{
				phase:   errors.PhasePoll,
				code:    snap.ErrorCode,
				message: snap.failureMessage(),
				payload: payload,
			})
		default:
			return nil, false, nil
		}
	}

	if f, ok := notOk(errors.PhasePoll, res.Status, body, payload, "Command failed"); ok {
		return nil, true, c.policy.application(f)
	}
	return payload, true, nil
}

func (c *Client) observe(cursor Cursor) {
	if c.opts.Observer != nil {
		c.opts.Observer(cursor)
	}
}
