package f

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestHealthCheck_AllUp(t *testing.T) {
	res := NewHealthCheck("jobrpc-tee").
		Add("upstream", func() error { return nil }).
		Build()

	assert.Equal(t, res.Whoami, "jobrpc-tee")
	assert.Equal(t, res.Status, StatusUp)
	assert.Equal(t, res.Components["upstream"].Status, StatusUp)
}

func TestHealthCheck_CriticalDown(t *testing.T) {
	res := NewHealthCheck("jobrpc-tee").
		AddOptional("audit", nil, func() error { return errors.New("2 failed writes") }).
		Add("upstream", func() error { return errors.New("connection refused") }).
		Build()

	assert.Equal(t, res.Status, StatusDown)
	assert.Equal(t, res.Components["upstream"].Message, "connection refused")
	assert.Equal(t, res.Components["audit"].Status, StatusDegraded)
}

func TestHealthCheck_OptionalDegraded(t *testing.T) {
	res := NewHealthCheck("jobrpc-tee").
		Add("upstream", func() error { return nil }).
		AddOptional("audit", map[string]any{"failures": int64(3)}, func() error { return errors.New("write failures") }).
		Build()

	assert.Equal(t, res.Status, StatusDegraded)
	assert.Equal(t, res.Components["audit"].Details["failures"], int64(3))
}
