package rpc

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/soffa-projects/jobrpc/errors"
	"github.com/soffa-projects/jobrpc/h"
	"github.com/soffa-projects/jobrpc/log"
)

type SubmitOptions struct {
	// Force asks the server to pre-empt whatever currently holds its
	// single-flight lock.
	Force bool
	// JobTimeout is the server-side execution limit, sent in whole seconds.
	JobTimeout time.Duration
}

// Submission is the outcome of an enqueue. Exactly one of Immediate,
// JobID or Legacy is set.
type Submission struct {
	Immediate Result
	JobID     string
	// Legacy means the server issued no job id and the result has to be
	// fetched from /get_result.
	Legacy bool
}

// Submit posts req to /enqueue. Synchronous commands answer with
// {"ok":true,...} and no job id, that body is returned as is and no
// polling is needed.
func (c *Client) Submit(ctx context.Context, req Request, opts SubmitOptions) (Submission, error) {
	query := map[string]string{}
	if opts.Force {
		query["force"] = "1"
	}
	if secs := int(opts.JobTimeout.Seconds()); secs > 0 {
		query["timeout"] = strconv.Itoa(secs)
	}

	log.Debug("enqueue %s (id=%d force=%t)", req.Method, req.ID, opts.Force)
	res, err := c.transport.post(ctx, "/enqueue", query, req)
	if err != nil {
		return Submission{}, errors.Transport(errors.PhaseEnqueue, err)
	}
	if res.Status >= 400 {
		return Submission{}, c.policy.protocol(httpFailure(errors.PhaseEnqueue, res))
	}

	payload, ok := h.DecodeObject(res.Body)
	if !ok {
		return Submission{}, errors.Protocol(errors.PhaseEnqueue, res.Status, "",
			fmt.Sprintf("Invalid JSON body; body=%s", truncate(string(res.Body), 512)), nil)
	}
	body := h.NewJsonBytes(res.Body)
	if f, ok := rpcError(errors.PhaseEnqueue, res.Status, body, payload); ok {
		return Submission{}, c.policy.protocol(f)
	}
	if f, ok := notOk(errors.PhaseEnqueue, res.Status, body, payload, "enqueue failed"); ok {
		return Submission{}, c.policy.application(f)
	}

	jobID := body.FirstString("jobId", "job_id")
	if okValue, _ := payload["ok"].(bool); okValue && !body.Has("jobId") && !body.Has("commandId") && jobID == "" {
		log.Debug("enqueue %s answered synchronously", req.Method)
		return Submission{Immediate: payload}, nil
	}
	if jobID == "" {
		log.Debug("enqueue %s issued no job id, falling back to /get_result", req.Method)
		return Submission{Legacy: true}, nil
	}
	log.Debug("enqueue %s queued as job %s", req.Method, jobID)
	return Submission{JobID: jobID}, nil
}
