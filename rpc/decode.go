package rpc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soffa-projects/jobrpc/h"
	"github.com/tidwall/gjson"
)

// Result is the decoded value handed back to the caller. It is usually an
// object, but a job may store any JSON value as its result.
type Result = any

// AsObject returns r as a JSON object, when it is one.
func AsObject(r Result) (map[string]any, bool) {
	obj, ok := r.(map[string]any)
	return obj, ok
}

type JobState string

const (
	StateEnqueued  JobState = "ENQUEUED"
	StateQueued    JobState = "QUEUED"
	StateRunning   JobState = "RUNNING"
	StateSucceeded JobState = "SUCCEEDED"
	StateFailed    JobState = "FAILED"
	StateTimeout   JobState = "TIMEOUT"
	StateDead      JobState = "DEAD"
)

// Terminal reports whether the server will never move the job again.
// Unknown states are treated as still running.
func (s JobState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimeout, StateDead:
		return true
	}
	return false
}

// Snapshot is one decoded /job/{id} row.
type Snapshot struct {
	State      JobState
	ResultJSON *string
	ErrorMsg   *string
	ErrorCode  string
	Raw        map[string]any
}

func snapshotOf(body h.JsonValue, payload map[string]any) *Snapshot {
	s := &Snapshot{
		State:     JobState(strings.ToUpper(body.String("state"))),
		ErrorCode: body.FirstString("error_code", "code"),
		Raw:       payload,
	}
	if r := gjson.Get(body.Raw(), "result_json"); r.Exists() && r.Type != gjson.Null {
		value := r.Raw
		if r.Type == gjson.String {
			value = r.Str
		}
		s.ResultJSON = &value
	}
	if msg := body.String("error_msg"); msg != "" {
		s.ErrorMsg = &msg
	}
	return s
}

// DecodeSucceeded turns the result of a SUCCEEDED job into the caller's value.
// Any JSON value comes back exactly as parsed, non-JSON text is wrapped as
// {"ok":true,"result":<text>}, and an absent or blank result gives {"ok":true}.
func DecodeSucceeded(s *Snapshot) Result {
	if s == nil || s.ResultJSON == nil || strings.TrimSpace(*s.ResultJSON) == "" {
		return map[string]any{"ok": true}
	}
	raw := *s.ResultJSON
	value, ok := h.DecodeAny([]byte(raw))
	if !ok {
		return map[string]any{"ok": true, "result": raw}
	}
	return value
}

// failureMessage is the server's error_msg, or the state name when empty.
func (s *Snapshot) failureMessage() string {
	if s.ErrorMsg != nil && *s.ErrorMsg != "" {
		return *s.ErrorMsg
	}
	return string(s.State)
}

// ------------------------------------------------------------------------------------------------------------------
// ENVELOPE UNWRAPPING
// ------------------------------------------------------------------------------------------------------------------

// MaxUnwrapDepth bounds how many nested "result" envelopes Unwrap peels.
const MaxUnwrapDepth = 4

var ErrUnwrap = errors.New("unwrap failed")

// UnwrapError says at which depth unwrapping stopped and what it found there.
type UnwrapError struct {
	Depth int
	Shape string
}

func (e *UnwrapError) Error() string {
	return fmt.Sprintf("unwrap failed at depth %d: expected an object, got %s", e.Depth, e.Shape)
}

func (e *UnwrapError) Is(target error) bool {
	return target == ErrUnwrap
}

// Unwrap peels nested {"result": {...}} envelopes, at most maxDepth of them
// (MaxUnwrapDepth when maxDepth <= 0), and returns the innermost object.
// It stops early at the first object without a "result" key. Every level
// it visits must be an object, otherwise an *UnwrapError is returned.
func Unwrap(value any, maxDepth int) (map[string]any, error) {
	if maxDepth <= 0 {
		maxDepth = MaxUnwrapDepth
	}
	current, ok := value.(map[string]any)
	if !ok {
		return nil, &UnwrapError{Depth: 0, Shape: shapeOf(value)}
	}
	for depth := 1; depth <= maxDepth; depth++ {
		inner, has := current["result"]
		if !has {
			return current, nil
		}
		next, ok := inner.(map[string]any)
		if !ok {
			return nil, &UnwrapError{Depth: depth, Shape: shapeOf(inner)}
		}
		current = next
	}
	return current, nil
}

func shapeOf(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	}
	return fmt.Sprintf("%T", value)
}
