package rpc

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/soffa-projects/jobrpc/test"
)

func TestNewRequest_Envelope(t *testing.T) {
	assert := test.NewAssertions(t)

	req := NewRequest("get_walls", map[string]any{"levelId": 3})
	raw, err := json.Marshal(req)
	assert.Nil(err)

	assert.Equals(req.JSONRPC, "2.0")
	assert.True(req.ID > 0)
	assert.MatchShape(string(raw), `{"jsonrpc":"2.0","method":"get_walls","params":{"levelId":3},"id":"#number"}`)
}

func TestNewRequest_IdsAreMonotonic(t *testing.T) {
	assert := test.NewAssertions(t)

	prev := NewRequest("ping", nil).ID
	for i := 0; i < 100; i++ {
		next := NewRequest("ping", nil).ID
		assert.True(next > prev)
		prev = next
	}
}

func TestNewRequest_NilParamsEncodeAsObject(t *testing.T) {
	assert := test.NewAssertions(t)

	raw, err := json.Marshal(NewRequest("ping", nil))
	assert.Nil(err)
	assert.Contains(string(raw), `"params":{}`)
}

func TestNewRequest_IdempotencyKeyOmittedWhenEmpty(t *testing.T) {
	assert := test.NewAssertions(t)

	raw, _ := json.Marshal(NewRequest("ping", nil))
	assert.False(strings.Contains(string(raw), "idempotencyKey"))

	req := NewRequest("ping", nil)
	req.IdempotencyKey = "k-1"
	raw, _ = json.Marshal(req)
	assert.Contains(string(raw), `"idempotencyKey":"k-1"`)
}

func TestNormalize_CoercesScalars(t *testing.T) {
	assert := test.NewAssertions(t)

	out := Normalize(map[string]any{
		"elementIds": 42,
		"uniqueIds":  nil,
		"other":      "x",
	}, DefaultListKeys)

	assert.Equals(out["elementIds"], []any{42})
	assert.Equals(out["uniqueIds"], []any{})
	assert.Equals(out["other"], "x")
}

func TestNormalize_KeepsLists(t *testing.T) {
	assert := test.NewAssertions(t)

	out := Normalize(map[string]any{
		"elementIds": []any{1, 2},
		"uniqueIds":  []string{"a"},
	}, DefaultListKeys)

	assert.Equals(out["elementIds"], []any{1, 2})
	assert.Equals(out["uniqueIds"], []string{"a"})
}

func TestNormalize_OneLevelIntoNestedParams(t *testing.T) {
	assert := test.NewAssertions(t)

	out := Normalize(map[string]any{
		"method": "select",
		"params": map[string]any{
			"elementIds": 7,
			"params":     map[string]any{"elementIds": 8},
		},
	}, DefaultListKeys)

	inner := out["params"].(map[string]any)
	assert.Equals(inner["elementIds"], []any{7})
	assert.Equals(inner["params"], map[string]any{"elementIds": 8})
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	assert := test.NewAssertions(t)

	inner := map[string]any{"uniqueIds": "u-1"}
	in := map[string]any{"elementIds": 1, "params": inner}
	_ = Normalize(in, DefaultListKeys)

	assert.Equals(in["elementIds"], 1)
	assert.Equals(inner["uniqueIds"], "u-1")
}

func TestNormalize_CustomKeys(t *testing.T) {
	assert := test.NewAssertions(t)

	out := Normalize(map[string]any{"viewIds": 5, "elementIds": 1}, []string{"viewIds"})
	assert.Equals(out["viewIds"], []any{5})
	assert.Equals(out["elementIds"], 1)
}
