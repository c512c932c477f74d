package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the family a classified failure belongs to.
type Kind string

const (
	KindTransport     Kind = "transport"
	KindProtocol      Kind = "protocol"
	KindBusy          Kind = "busy"
	KindApplication   Kind = "application"
	KindServerTimeout Kind = "server_timeout"
	KindJobTimeout    Kind = "job_timeout"
	KindJobFatal      Kind = "job_fatal"
)

// Phase names the operation that failed.
type Phase string

const (
	PhaseEnqueue Phase = "enqueue"
	PhasePoll    Phase = "poll"
)

// RpcError is the one structured failure every caller receives. It is
// built once by the constructors below and never mutated afterwards.
type RpcError struct {
	Kind       Kind
	Phase      Phase
	Message    string
	Code       string
	HttpStatus int
	Payload    map[string]any
	cause      error
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Phase, e.Message)
}

func (e *RpcError) Unwrap() error {
	return e.cause
}

// Retryable reports whether the resilience wrapper may re-drive the call.
func (e *RpcError) Retryable() bool {
	switch e.Kind {
	case KindTransport, KindBusy, KindServerTimeout, KindJobTimeout:
		return true
	default:
		return false
	}
}

// Envelope renders the error the way the CLI prints it.
func (e *RpcError) Envelope() map[string]any {
	var status any
	if e.HttpStatus != 0 {
		status = e.HttpStatus
	}
	var code any
	if e.Code != "" {
		code = e.Code
	}
	payload := e.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return map[string]any{
		"ok":         false,
		"where":      string(e.Phase),
		"kind":       string(e.Kind),
		"code":       code,
		"httpStatus": status,
		"error":      e.Error(),
		"payload":    payload,
	}
}

// ------------------------------------------------------------------------------------------------------------------
// CONSTRUCTORS
// ------------------------------------------------------------------------------------------------------------------

func Transport(phase Phase, cause error) error {
	return &RpcError{
		Kind:    KindTransport,
		Phase:   phase,
		Message: fmt.Sprintf("HTTP request failed: %v", cause),
		cause:   cause,
	}
}

func Protocol(phase Phase, status int, code string, message string, payload map[string]any) error {
	return &RpcError{
		Kind:       KindProtocol,
		Phase:      phase,
		Message:    message,
		Code:       code,
		HttpStatus: status,
		Payload:    payload,
	}
}

func Busy(phase Phase, status int, code string, message string, payload map[string]any) error {
	return &RpcError{
		Kind:       KindBusy,
		Phase:      phase,
		Message:    message,
		Code:       code,
		HttpStatus: status,
		Payload:    payload,
	}
}

func Application(phase Phase, code string, message string, payload map[string]any) error {
	return &RpcError{
		Kind:    KindApplication,
		Phase:   phase,
		Message: message,
		Code:    code,
		Payload: payload,
	}
}

// ServerTimeout is a TIMEOUT reported by the server, either as a job state
// or as a timeout-shaped application error.
func ServerTimeout(phase Phase, code string, message string, payload map[string]any) error {
	return &RpcError{
		Kind:    KindServerTimeout,
		Phase:   phase,
		Message: message,
		Code:    code,
		Payload: payload,
	}
}

// JobTimeout is raised by the client when its own wait budget runs out
// before any terminal state was observed.
func JobTimeout(message string) error {
	return &RpcError{
		Kind:    KindJobTimeout,
		Phase:   PhasePoll,
		Message: message,
	}
}

func JobFatal(code string, message string, payload map[string]any) error {
	return &RpcError{
		Kind:    KindJobFatal,
		Phase:   PhasePoll,
		Message: message,
		Code:    code,
		Payload: payload,
	}
}

// ------------------------------------------------------------------------------------------------------------------
// INSPECTION
// ------------------------------------------------------------------------------------------------------------------

func AsRpcError(err error) (*RpcError, bool) {
	var re *RpcError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) Kind {
	if re, ok := AsRpcError(err); ok {
		return re.Kind
	}
	return ""
}

// StatusOf extracts the HTTP status carried by a classified error.
func StatusOf(err error) int {
	if re, ok := AsRpcError(err); ok && re.HttpStatus != 0 {
		return re.HttpStatus
	}
	return http.StatusInternalServerError
}

func Retryable(err error) bool {
	if re, ok := AsRpcError(err); ok {
		return re.Retryable()
	}
	return false
}

// Is is kept for callers that import this package instead of the standard one.
func Is(err error, target error) bool {
	return errors.Is(err, target)
}
