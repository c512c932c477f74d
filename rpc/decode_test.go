package rpc

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/go-faker/faker/v4"
	"github.com/soffa-projects/jobrpc/h"
	"github.com/soffa-projects/jobrpc/test"
)

func succeeded(result *string) *Snapshot {
	return &Snapshot{State: StateSucceeded, ResultJSON: result}
}

func TestDecodeSucceeded_Object(t *testing.T) {
	assert := test.NewAssertions(t)

	res := DecodeSucceeded(succeeded(h.StrPtr(`{"value":42,"nested":{"a":[1,2]}}`)))
	assert.Equals(res, map[string]any{"value": float64(42), "nested": map[string]any{"a": []any{float64(1), float64(2)}}})
}

func TestDecodeSucceeded_NonJSONIsWrapped(t *testing.T) {
	assert := test.NewAssertions(t)

	res := DecodeSucceeded(succeeded(h.StrPtr("Wall created")))
	assert.Equals(res, map[string]any{"ok": true, "result": "Wall created"})
}

func TestDecodeSucceeded_NonObjectJSONComesBackAsIs(t *testing.T) {
	assert := test.NewAssertions(t)

	assert.Equals(DecodeSucceeded(succeeded(h.StrPtr(`[1,2,3]`))), []any{float64(1), float64(2), float64(3)})
	assert.Equals(DecodeSucceeded(succeeded(h.StrPtr(`7`))), float64(7))
	assert.Equals(DecodeSucceeded(succeeded(h.StrPtr(`"done"`))), "done")
	assert.Equals(DecodeSucceeded(succeeded(h.StrPtr(`true`))), true)
	assert.True(DecodeSucceeded(succeeded(h.StrPtr(`null`))) == nil)

	_, isObject := AsObject(DecodeSucceeded(succeeded(h.StrPtr(`[1]`))))
	assert.False(isObject)
	obj, isObject := AsObject(DecodeSucceeded(succeeded(h.StrPtr(`{"a":1}`))))
	assert.True(isObject)
	assert.Equals(obj["a"], float64(1))
}

func TestDecodeSucceeded_AbsentOrBlank(t *testing.T) {
	assert := test.NewAssertions(t)

	assert.Equals(DecodeSucceeded(succeeded(nil)), map[string]any{"ok": true})
	assert.Equals(DecodeSucceeded(succeeded(h.StrPtr("   "))), map[string]any{"ok": true})
	assert.Equals(DecodeSucceeded(nil), map[string]any{"ok": true})
}

type wallResult struct {
	ID       string   `json:"id" faker:"uuid_hyphenated"`
	Name     string   `json:"name" faker:"word"`
	Level    string   `json:"level" faker:"word"`
	Height   float64  `json:"height"`
	Tags     []string `json:"tags" faker:"slice_len=3"`
	Location struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"location"`
}

// Whatever object the server stores, the caller gets the same object back.
func TestDecodeSucceeded_RoundTrip(t *testing.T) {
	assert := test.NewAssertions(t)

	for i := 0; i < 25; i++ {
		var payload wallResult
		assert.Nil(faker.FakeData(&payload))
		raw, err := json.Marshal(payload)
		assert.Nil(err)

		var expected map[string]any
		assert.Nil(json.Unmarshal(raw, &expected))

		assert.Equals(DecodeSucceeded(succeeded(h.StrPtr(string(raw)))), expected)
	}
}

func TestSnapshotOf(t *testing.T) {
	assert := test.NewAssertions(t)

	raw := []byte(`{"state":"failed","error_msg":"boom","error_code":"E_FAIL","result_json":null}`)
	payload, _ := h.DecodeObject(raw)
	s := snapshotOf(h.NewJsonBytes(raw), payload)

	assert.Equals(s.State, StateFailed)
	assert.Equals(*s.ErrorMsg, "boom")
	assert.Equals(s.ErrorCode, "E_FAIL")
	assert.True(s.ResultJSON == nil)
	assert.Equals(s.failureMessage(), "boom")
}

func TestSnapshotOf_EmbeddedResultObject(t *testing.T) {
	assert := test.NewAssertions(t)

	raw := []byte(`{"state":"SUCCEEDED","result_json":{"value":1}}`)
	payload, _ := h.DecodeObject(raw)
	s := snapshotOf(h.NewJsonBytes(raw), payload)

	assert.Equals(*s.ResultJSON, `{"value":1}`)
	assert.Equals(DecodeSucceeded(s), map[string]any{"value": float64(1)})
}

func TestSnapshot_FailureMessageFallsBackToState(t *testing.T) {
	assert := test.NewAssertions(t)

	s := &Snapshot{State: StateDead}
	assert.Equals(s.failureMessage(), "DEAD")
}

func TestJobState_Terminal(t *testing.T) {
	assert := test.NewAssertions(t)

	for _, s := range []JobState{StateSucceeded, StateFailed, StateTimeout, StateDead} {
		assert.True(s.Terminal(), s)
	}
	for _, s := range []JobState{StateEnqueued, StateQueued, StateRunning, "PAUSED", ""} {
		assert.False(s.Terminal(), s)
	}
}

func TestUnwrap(t *testing.T) {
	assert := test.NewAssertions(t)

	value := map[string]any{"ok": true, "result": map[string]any{"result": map[string]any{"walls": []any{}}}}
	out, err := Unwrap(value, 0)
	assert.Nil(err)
	assert.Equals(out, map[string]any{"walls": []any{}})
}

func TestUnwrap_NoEnvelope(t *testing.T) {
	assert := test.NewAssertions(t)

	out, err := Unwrap(map[string]any{"walls": 3}, 4)
	assert.Nil(err)
	assert.Equals(out, map[string]any{"walls": 3})
}

func TestUnwrap_StopsAtMaxDepth(t *testing.T) {
	assert := test.NewAssertions(t)

	level3 := map[string]any{"result": map[string]any{"deepest": true}}
	value := map[string]any{"result": map[string]any{"result": level3}}

	out, err := Unwrap(value, 2)
	assert.Nil(err)
	assert.Equals(out, level3)
}

func TestUnwrap_NonObjectLevel(t *testing.T) {
	assert := test.NewAssertions(t)

	_, err := Unwrap(map[string]any{"ok": true, "result": "Wall created"}, 4)
	assert.NotNil(err)
	assert.True(stderrors.Is(err, ErrUnwrap))

	var ue *UnwrapError
	assert.True(stderrors.As(err, &ue))
	assert.Equals(ue.Depth, 1)
	assert.Equals(ue.Shape, "string")

	_, err = Unwrap([]any{1}, 4)
	assert.True(stderrors.As(err, &ue))
	assert.Equals(ue.Depth, 0)
	assert.Equals(ue.Shape, "array")
}
