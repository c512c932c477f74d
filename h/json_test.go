package h

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestToJsonString(t *testing.T) {
	output, err := ToJsonString(map[string]any{"jobId": "abc"})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, output, `{"jobId":"abc"}`)
}

func TestFromJsonString(t *testing.T) {
	var target map[string]any
	err := FromJsonString(`{"ok":true}`, &target)
	assert.Equal(t, err, nil)
	assert.Equal(t, target["ok"], true)

	err = FromJsonString(`{broken`, &target)
	assert.NotEqual(t, err, nil)
}

func TestJsonValue_Get(t *testing.T) {
	v := NewJsonValue(`{"error":{"code":-32001,"message":"busy"},"state":null}`)

	assert.Equal(t, v.Valid(), true)
	assert.Equal(t, v.IsObject(), true)
	assert.Equal(t, v.Has("error.code"), true)
	assert.Equal(t, v.Has("state"), true)
	assert.Equal(t, v.Has("missing"), false)
	assert.Equal(t, v.Get("error.message"), "busy")
	assert.Equal(t, v.Get("missing"), nil)
	assert.Equal(t, v.String("error.code"), "-32001")
	assert.Equal(t, v.String("state"), "")
}

func TestJsonValue_FirstString(t *testing.T) {
	assert.Equal(t, NewJsonValue(`{"job_id":"j-2"}`).FirstString("jobId", "job_id"), "j-2")
	assert.Equal(t, NewJsonValue(`{"jobId":"j-1","job_id":"j-2"}`).FirstString("jobId", "job_id"), "j-1")
	assert.Equal(t, NewJsonValue(`{"ok":true}`).FirstString("jobId", "job_id"), "")
}

func TestJsonValue_Invalid(t *testing.T) {
	assert.Equal(t, NewJsonValue("").Valid(), false)
	assert.Equal(t, NewJsonValue("<html>").Valid(), false)
	assert.Equal(t, NewJsonValue("[1,2]").IsObject(), false)
}

func TestDecodeObject(t *testing.T) {
	values, ok := DecodeObject([]byte(`{"value":42}`))
	assert.Equal(t, ok, true)
	assert.Equal(t, values["value"], float64(42))

	_, ok = DecodeObject([]byte(`[1,2,3]`))
	assert.Equal(t, ok, false)

	_, ok = DecodeObject([]byte(`not json`))
	assert.Equal(t, ok, false)
}

func TestDecodeAny(t *testing.T) {
	value, ok := DecodeAny([]byte(`[1,"a"]`))
	assert.Equal(t, ok, true)
	assert.Equal(t, value, []any{float64(1), "a"})

	value, ok = DecodeAny([]byte(`"text"`))
	assert.Equal(t, ok, true)
	assert.Equal(t, value, "text")

	_, ok = DecodeAny([]byte(`hello`))
	assert.Equal(t, ok, false)
}
