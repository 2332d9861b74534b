// Package journal persists swap outcomes as JSON lines.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"revealbot-go/internal/execution"
)

// Recorder captures swap outcomes for later inspection.
type Recorder interface {
	Record(execution.Outcome) error
	Close() error
}

// Open returns a JSONL recorder at path, or a no-op recorder when path is empty.
func Open(path string) (Recorder, error) {
	if path == "" {
		return nopRecorder{}, nil
	}
	return NewJSONLRecorder(path)
}

// JSONLRecorder appends outcomes as JSON lines. Safe for concurrent use.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record writes a single outcome to the underlying JSONL file.
func (r *JSONLRecorder) Record(out execution.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return fmt.Errorf("journal closed")
	}
	return r.enc.Encode(out)
}

// Close flushes and closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

type nopRecorder struct{}

func (nopRecorder) Record(execution.Outcome) error { return nil }
func (nopRecorder) Close() error                   { return nil }
