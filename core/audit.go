package f

import (
	"time"
)

// AuditRecord is one proxied exchange. Request and Response hold the
// decoded JSON body, nil for an empty body, or a marker object for
// anything that is not JSON.
type AuditRecord struct {
	Timestamp time.Time `json:"ts"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Request   any       `json:"req"`
	Response  any       `json:"res"`
	Status    int       `json:"status"`
	LatencyMs int64     `json:"latency_ms"`
	Error     *string   `json:"error"`
}

// AuditSink persists audit records. Records are written once and never
// rewritten.
type AuditSink interface {
	Append(record AuditRecord) error
}
