package h

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// JsonValue is a read-only view over a raw JSON document.
type JsonValue struct {
	value string
}

func NewJsonValue(value string) JsonValue {
	return JsonValue{value: value}
}

func NewJsonBytes(value []byte) JsonValue {
	return JsonValue{value: string(value)}
}

func (j JsonValue) Valid() bool {
	return j.value != "" && gjson.Valid(j.value)
}

func (j JsonValue) IsObject() bool {
	return gjson.Parse(j.value).IsObject()
}

func (j JsonValue) Has(path string) bool {
	return gjson.Get(j.value, path).Exists()
}

func (j JsonValue) Get(path string) any {
	value := gjson.Get(j.value, path)
	if value.Exists() {
		return value.Value()
	}
	return nil
}

// String returns the value at path as text. Numbers and booleans are
// rendered the way they appear in the document, null and missing give "".
func (j JsonValue) String(path string) string {
	value := gjson.Get(j.value, path)
	if !value.Exists() || value.Type == gjson.Null {
		return ""
	}
	return value.String()
}

// FirstString returns the first non-empty string among paths.
func (j JsonValue) FirstString(paths ...string) string {
	for _, path := range paths {
		if s := j.String(path); s != "" {
			return s
		}
	}
	return ""
}

func (j JsonValue) Raw() string {
	return j.value
}

func ToJsonString(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func FromJsonString(source string, target any) error {
	err := json.Unmarshal([]byte(source), target)
	if err != nil {
		return err
	}
	return nil
}

// DecodeObject decodes raw into a mapping. It reports false when raw is
// not valid JSON or not an object.
func DecodeObject(raw []byte) (map[string]any, bool) {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, false
	}
	values := map[string]any{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false
	}
	return values, true
}

// DecodeAny decodes any JSON value. It reports false when raw is not JSON.
func DecodeAny(raw []byte) (any, bool) {
	if !gjson.ValidBytes(raw) {
		return nil, false
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false
	}
	return value, true
}
