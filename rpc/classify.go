package rpc

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/soffa-projects/jobrpc/errors"
	"github.com/soffa-projects/jobrpc/h"
	"github.com/thoas/go-funk"
)

// Policy is the data the classifier uses to spot busy and timeout-shaped
// failures. Codes are compared as text, so JSON-RPC numeric codes are
// written in their decimal form ("-32001").
type Policy struct {
	BusyStatuses   []int
	BusyCodes      []string
	BusyPhrases    []string
	TimeoutCodes   []string
	TimeoutPhrases []string
}

func DefaultPolicy() Policy {
	return Policy{
		BusyStatuses:   []int{http.StatusConflict},
		BusyCodes:      []string{"BUSY", "E_BUSY", "E_IN_PROGRESS", "-32001"},
		BusyPhrases:    []string{"in progress", "busy"},
		TimeoutCodes:   []string{"TIMEOUT", "E_TIMEOUT"},
		TimeoutPhrases: []string{"did not complete", "heartbeat lost", "timed out", "timeout"},
	}
}

// failure is a raw failure before it is given a kind.
type failure struct {
	phase   errors.Phase
	status  int
	code    string
	message string
	payload map[string]any
}

type verdict int

const (
	verdictNone verdict = iota
	verdictBusy
	verdictTimeout
)

// protocol classifies a JSON-RPC error or an HTTP error status.
func (p Policy) protocol(f failure) error {
	switch p.verdict(f) {
	case verdictBusy:
		return errors.Busy(f.phase, f.status, f.code, f.message, f.payload)
	case verdictTimeout:
		return errors.ServerTimeout(f.phase, f.code, f.message, f.payload)
	}
	return errors.Protocol(f.phase, f.status, f.code, f.message, f.payload)
}

// application classifies an ok:false payload.
func (p Policy) application(f failure) error {
	switch p.verdict(f) {
	case verdictBusy:
		return errors.Busy(f.phase, f.status, f.code, f.message, f.payload)
	case verdictTimeout:
		return errors.ServerTimeout(f.phase, f.code, f.message, f.payload)
	}
	return errors.Application(f.phase, f.code, f.message, f.payload)
}

// terminal classifies a FAILED, TIMEOUT or DEAD job. Only TIMEOUT may be
// retried, FAILED and DEAD are final whatever the message says.
func (p Policy) terminal(state JobState, f failure) error {
	if state == StateTimeout {
		return errors.ServerTimeout(f.phase, f.code, f.message, f.payload)
	}
	return errors.JobFatal(f.code, f.message, f.payload)
}

// verdict looks at the structured code first, then the HTTP status and
// only then at the message text.
func (p Policy) verdict(f failure) verdict {
	if f.code != "" {
		if h.EqualFoldAny(f.code, p.BusyCodes) {
			return verdictBusy
		}
		if h.EqualFoldAny(f.code, p.TimeoutCodes) {
			return verdictTimeout
		}
	}
	if f.status != 0 && funk.ContainsInt(p.BusyStatuses, f.status) {
		return verdictBusy
	}
	return p.legacyMatch(f.message)
}

// legacyMatch recognizes servers that only describe the condition in
// free text.
func (p Policy) legacyMatch(message string) verdict {
	if _, ok := h.ContainsFold(message, p.BusyPhrases); ok {
		return verdictBusy
	}
	if _, ok := h.ContainsFold(message, p.TimeoutPhrases); ok {
		return verdictTimeout
	}
	return verdictNone
}

// ------------------------------------------------------------------------------------------------------------------
// PAYLOAD INSPECTION
// ------------------------------------------------------------------------------------------------------------------

// rpcError extracts a top-level JSON-RPC error. It reports false when the
// body carries none, or only an empty one (null, false, 0, "", {} or []).
func rpcError(phase errors.Phase, status int, body h.JsonValue, payload map[string]any) (failure, bool) {
	if !body.Has("error") {
		return failure{}, false
	}
	raw := payload["error"]
	switch e := raw.(type) {
	case nil, bool, float64, []any:
		if e == nil || h.IsEmpty(e) {
			return failure{}, false
		}
	case string:
		if e == "" {
			return failure{}, false
		}
		// ok:false bodies carry their message in "error"; those are application failures.
		if ok, present := payload["ok"].(bool); present && !ok {
			return failure{}, false
		}
		return failure{
			phase:   phase,
			status:  status,
			code:    codeOf(body, "code", "error_code"),
			message: fmt.Sprintf("JSON-RPC error: %s", e),
			payload: map[string]any{"error": e},
		}, true
	case map[string]any:
		if len(e) == 0 {
			return failure{}, false
		}
		code := body.String("error.code")
		message := body.String("error.message")
		if message == "" {
			message = "JSON-RPC error"
		}
		return failure{
			phase:   phase,
			status:  status,
			code:    code,
			message: fmt.Sprintf("JSON-RPC error code=%s message=%s", displayCode(code), message),
			payload: map[string]any{"error": e, "data": e["data"]},
		}, true
	}
	return failure{
		phase:   phase,
		status:  status,
		message: fmt.Sprintf("JSON-RPC error: %v", raw),
		payload: map[string]any{"error": raw},
	}, true
}

// notOk extracts an ok:false failure.
func notOk(phase errors.Phase, status int, body h.JsonValue, payload map[string]any, fallback string) (failure, bool) {
	ok, present := payload["ok"].(bool)
	if !present || ok {
		return failure{}, false
	}
	message := body.FirstString("error", "msg", "message")
	if message == "" {
		message = fallback
	}
	return failure{
		phase:   phase,
		status:  status,
		code:    codeOf(body, "code", "error_code"),
		message: message,
		payload: payload,
	}, true
}

// httpFailure builds the failure for a status >= 400.
func httpFailure(phase errors.Phase, res *response) failure {
	body := h.NewJsonBytes(res.Body)
	reason := fmt.Sprintf("HTTP %d %s", res.Status, http.StatusText(res.Status))
	payload, ok := h.DecodeObject(res.Body)
	if !ok {
		return failure{
			phase:   phase,
			status:  res.Status,
			message: fmt.Sprintf("%s; body=%s", reason, truncate(string(res.Body), 512)),
		}
	}
	if f, ok := rpcError(phase, res.Status, body, payload); ok {
		return f
	}
	f := failure{
		phase:   phase,
		status:  res.Status,
		code:    codeOf(body, "code", "error_code"),
		message: reason,
		payload: payload,
	}
	if msg := body.FirstString("msg", "error", "message"); msg != "" {
		f.message = fmt.Sprintf("%s: %s", reason, msg)
	}
	return f
}

func codeOf(body h.JsonValue, paths ...string) string {
	return body.FirstString(paths...)
}

func displayCode(code string) string {
	if code == "" {
		return "null"
	}
	return code
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(" + strconv.Itoa(len(s)-max) + " more bytes)"
}
