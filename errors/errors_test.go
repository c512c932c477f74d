package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestRpcError_Error(t *testing.T) {
	err := Application(PhaseEnqueue, "", "enqueue failed", nil)
	assert.Equal(t, err.Error(), "[enqueue] enqueue failed")
}

func TestTransport_WrapsCause(t *testing.T) {
	err := Transport(PhasePoll, context.DeadlineExceeded)

	assert.Equal(t, KindOf(err), KindTransport)
	assert.Equal(t, errors.Is(err, context.DeadlineExceeded), true)
	assert.Equal(t, Retryable(err), true)
}

func TestProtocol(t *testing.T) {
	err := Protocol(PhaseEnqueue, http.StatusBadRequest, "E_NO_METHOD", "HTTP 400 Bad Request", map[string]any{"ok": false})

	re, ok := AsRpcError(err)
	assert.Equal(t, ok, true)
	assert.Equal(t, re.Kind, KindProtocol)
	assert.Equal(t, re.Code, "E_NO_METHOD")
	assert.Equal(t, StatusOf(err), http.StatusBadRequest)
	assert.Equal(t, Retryable(err), false)
}

func TestRetryable_ByKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"Transport", Transport(PhaseEnqueue, errors.New("refused")), true},
		{"Busy", Busy(PhaseEnqueue, http.StatusConflict, "", "busy", nil), true},
		{"ServerTimeout", ServerTimeout(PhasePoll, "TIMEOUT", "heartbeat lost", nil), true},
		{"JobTimeout", JobTimeout("Polling timed out"), true},
		{"Protocol", Protocol(PhasePoll, 500, "", "boom", nil), false},
		{"Application", Application(PhasePoll, "", "nope", nil), false},
		{"JobFatal", JobFatal("", "boom", nil), false},
		{"Plain", errors.New("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, Retryable(tt.err), tt.expected)
		})
	}
}

func TestJobTimeout_DistinctFromJobFatal(t *testing.T) {
	timeout := JobTimeout("Polling timed out after 2.0 sec.")
	fatal := JobFatal("", "DEAD", nil)

	assert.NotEqual(t, KindOf(timeout), KindOf(fatal))
	assert.Equal(t, KindOf(timeout), KindJobTimeout)
	assert.Equal(t, KindOf(fatal), KindJobFatal)
}

func TestStatusOf_WithoutStatus(t *testing.T) {
	assert.Equal(t, StatusOf(errors.New("standard error")), http.StatusInternalServerError)
	assert.Equal(t, StatusOf(nil), http.StatusInternalServerError)
	assert.Equal(t, StatusOf(JobFatal("", "x", nil)), http.StatusInternalServerError)
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("calling ping: %w", Busy(PhaseEnqueue, 409, "", "busy", nil))
	assert.Equal(t, KindOf(err), KindBusy)
}

func TestEnvelope(t *testing.T) {
	err := Protocol(PhaseEnqueue, 409, "E_BUSY", "HTTP 409 Conflict", map[string]any{"code": "E_BUSY"})
	re, _ := AsRpcError(err)

	env := re.Envelope()
	assert.Equal(t, env["ok"], false)
	assert.Equal(t, env["where"], "enqueue")
	assert.Equal(t, env["kind"], "protocol")
	assert.Equal(t, env["code"], "E_BUSY")
	assert.Equal(t, env["httpStatus"], 409)
	assert.Equal(t, env["error"], "[enqueue] HTTP 409 Conflict")
}

func TestEnvelope_EmptyFields(t *testing.T) {
	re, _ := AsRpcError(JobTimeout("late"))

	env := re.Envelope()
	assert.Equal(t, env["httpStatus"], nil)
	assert.Equal(t, env["code"], nil)
	assert.Equal(t, env["payload"], map[string]any{})
}

func TestIs_Delegates(t *testing.T) {
	err1 := JobFatal("", "boom", nil)
	err2 := errors.New("standard error")

	assert.Equal(t, Is(err1, err1), true)
	assert.Equal(t, Is(err1, err2), false)
}
