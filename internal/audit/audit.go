package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the audit log file name inside the data directory.
const FileName = "audit.jsonl"

// TimestampFormat is the layout of Entry.Timestamp.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`      // RFC3339 with microseconds.
	Operation string `json:"op"`      // Operation name.
	Outcome   string `json:"outcome"` // success, failure or cancelled.
	State     string `json:"state"`   // Session state after the operation.

	// Optional fields depending on operation.
	NamesCount int    `json:"names_count,omitempty"` // Record sets touched by a sweep, import or clear.
	Mode       string `json:"mode,omitempty"`        // For import (merge/replace).
	OutputPath string `json:"output_path,omitempty"` // For export.
	Detail     string `json:"detail,omitempty"`      // Error text or other context. Never a password.
}

// Sink receives audit entries.
type Sink interface {
	Log(entry Entry)
}

// Trail appends entries to a JSON Lines file.
// The zero value discards entries.
type Trail struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// NewTrail returns a Trail writing to dir/audit.jsonl.
func NewTrail(dir string) *Trail {
	return &Trail{path: filepath.Join(dir, FileName), now: time.Now}
}

// Path returns the log file location, or "" for a discarding Trail.
func (t *Trail) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Log appends an entry to the audit log.
// If logging fails, it does not return an error.
// Operations should not fail just because audit logging failed.
func (t *Trail) Log(entry Entry) {
	if t == nil || t.path == "" {
		return
	}

	// Set timestamp if not already set.
	if entry.Timestamp == "" {
		now := time.Now
		if t.now != nil {
			now = t.now
		}
		entry.Timestamp = now().UTC().Format(TimestampFormat)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(t.path), 0700); err != nil {
		return
	}

	// Open file for appending (create if doesn't exist).
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	// Write entry with newline.
	_, _ = f.Write(append(data, '\n'))
}

// Discard is a Sink that drops every entry.
var Discard Sink = discard{}

type discard struct{}

func (discard) Log(Entry) {}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data)
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var entries []Entry
	start := 0

	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1

			if len(line) == 0 {
				continue
			}

			var entry Entry
			if err := json.Unmarshal(line, &entry); err != nil {
				// Skip malformed entries.
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}
