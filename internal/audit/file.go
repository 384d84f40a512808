// file.go — JSONL audit sink: one JSON object per line, append-only, never
// rewritten in place. Atomicity comes from a process mutex plus a single
// write syscall per entry.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileLog implements Log on a JSONL file.
type FileLog struct {
	mu   sync.Mutex
	path string
}

var _ Log = (*FileLog)(nil)

// NewFileLog creates a sink at path. A missing file reads as an empty log
// and is created on first append.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// Append writes one entry as a single line.
func (l *FileLog) Append(ctx context.Context, admin, action string, details map[string]any) error {
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Admin:     admin,
		Action:    action,
		Details:   details,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit encode: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("audit open: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	return f.Sync()
}

// Entries reads the log in write order, skipping unparseable lines (a
// half-written final line after a crash must not poison the whole trail).
func (l *FileLog) Entries(ctx context.Context, limit int) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit read: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit scan: %w", err)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}
