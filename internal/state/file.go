package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/quantpulse/tradeaudit/internal/health"
)

// FileStore persists the run state as a JSON file. Writes go to a temp
// file in the same directory and are renamed into place, so a crash
// mid-write leaves the previous state intact.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed state store at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted state. A missing or unreadable file yields an
// empty state: state corruption degrades, it never blocks a run.
func (s *FileStore) Load(_ context.Context) (*health.RunState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return health.NewRunState(), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st health.RunState
	if err := json.Unmarshal(data, &st); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("State file malformed, resetting")
		return health.NewRunState(), nil
	}
	if st.FlaggedGaps == nil {
		st.FlaggedGaps = make(map[string]string)
	}
	return &st, nil
}

// Save atomically replaces the persisted state
func (s *FileStore) Save(_ context.Context, st *health.RunState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tradeaudit-state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
