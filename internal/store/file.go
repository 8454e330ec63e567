package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File keeps the snapshot in a JSON file.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile creates a file store. An empty path defaults to
// ~/.local/state/prayer-widget/state.json.
func NewFile(path string) (*File, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(home, ".local", "state", "prayer-widget", "state.json")
	}
	return &File{path: path}, nil
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Load reads the snapshot from disk.
func (f *File) Load(_ context.Context) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", f.path, err)
	}
	return &s, nil
}

// Save writes the snapshot atomically.
func (f *File) Save(_ context.Context, s *Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	// Atomic write
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}

// Close is a no-op.
func (f *File) Close() error {
	return nil
}
