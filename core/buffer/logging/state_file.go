package logging

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/kilianp07/hems/core/model"
)

// FileStateStore keeps the buffer mode in a small JSON file next to the
// JSONL event log.
type FileStateStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStateStore(path string) *FileStateStore { return &FileStateStore{path: path} }

func (s *FileStateStore) Load(_ context.Context) (model.BufferModeState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return model.BufferModeState{}, false, nil
	}
	if err != nil {
		return model.BufferModeState{}, false, err
	}
	var st model.BufferModeState
	if err := json.Unmarshal(b, &st); err != nil {
		return model.BufferModeState{}, false, err
	}
	return st, true, nil
}

// Save writes the state atomically through a temporary file.
func (s *FileStateStore) Save(_ context.Context, st model.BufferModeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
