package rpc

import (
	"sync/atomic"
	"time"

	"github.com/thoas/go-funk"
)

const jsonRPCVersion = "2.0"

// DefaultListKeys are the parameters the server always expects as arrays.
var DefaultListKeys = []string{"elementIds", "uniqueIds"}

var lastID atomic.Int64

func init() {
	lastID.Store(time.Now().UnixMilli())
}

// nextID is monotonic per process and roughly time ordered.
func nextID() int64 {
	return lastID.Add(1)
}

// Request is the JSON-RPC envelope posted to /enqueue.
type Request struct {
	JSONRPC        string         `json:"jsonrpc"`
	Method         string         `json:"method"`
	Params         map[string]any `json:"params"`
	ID             int64          `json:"id"`
	IdempotencyKey string         `json:"idempotencyKey,omitempty"`
}

// NewRequest builds a request with normalized params. The method name is
// not checked, an unknown method comes back as a server error.
func NewRequest(method string, params map[string]any, listKeys ...string) Request {
	if len(listKeys) == 0 {
		listKeys = DefaultListKeys
	}
	return Request{
		JSONRPC: jsonRPCVersion,
		Method:  method,
		Params:  Normalize(params, listKeys),
		ID:      nextID(),
	}
}

// Normalize returns a copy of params where every key in listKeys that holds
// a scalar is turned into a single-element list and a nil value into an
// empty list. A nested "params" mapping gets the same treatment, one level
// deep. The input map is left untouched.
func Normalize(params map[string]any, listKeys []string) map[string]any {
	out := normalizeLevel(params, listKeys)
	if inner, ok := out["params"].(map[string]any); ok {
		out["params"] = normalizeLevel(inner, listKeys)
	}
	return out
}

func normalizeLevel(params map[string]any, listKeys []string) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	for _, key := range listKeys {
		value, ok := out[key]
		if !ok {
			continue
		}
		out[key] = ensureList(value)
	}
	return out
}

func ensureList(value any) any {
	if value == nil {
		return []any{}
	}
	if funk.IsCollection(value) {
		return value
	}
	return []any{value}
}
