package adapters

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	f "github.com/soffa-projects/jobrpc/core"
)

const auditFileSuffix = "_mcp.jsonl"

// FileAuditSink appends one JSON line per record to <dir>/<YYYY-MM-DD>_mcp.jsonl.
// The file is opened in append mode for every write and each line goes out
// in a single write call, so concurrent writers never interleave inside a line.
type FileAuditSink struct {
	dir string
	now func() time.Time
}

func NewFileAuditSink(dir string) *FileAuditSink {
	return &FileAuditSink{dir: dir, now: time.Now}
}

func (s *FileAuditSink) Dir() string {
	return s.dir
}

// FileFor returns the partition a record stamped at ts lands in.
func (s *FileAuditSink) FileFor(ts time.Time) string {
	return filepath.Join(s.dir, ts.Format("2006-01-02")+auditFileSuffix)
}

func (s *FileAuditSink) Append(record f.AuditRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = s.now()
	}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode audit record: %w", err)
	}
	line = append(line, '\n')

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create audit dir: %w", err)
	}
	file, err := os.OpenFile(s.FileFor(record.Timestamp), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit file: %w", err)
	}
	_, werr := file.Write(line)
	cerr := file.Close()
	if werr != nil {
		return fmt.Errorf("failed to write audit record: %w", werr)
	}
	return cerr
}
