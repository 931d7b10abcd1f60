package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// SessionState is the client-side state shared between TUI runs: which
// conversation to resume. Guarded by a file lock so two concurrent
// instances do not interleave writes.
type SessionState struct {
	ConversationID uuid.UUID `json:"conversationId"`
	ModelID        string    `json:"modelId,omitempty"`
}

const lockTimeout = 2 * time.Second

func statePaths(dir string) (stateFile, lockFile string) {
	return filepath.Join(dir, "state.json"), filepath.Join(dir, "state.lock")
}

func acquire(lock *flock.Flock) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return err
	}
	if !locked {
		return errors.New("held by another process")
	}
	return nil
}

// LoadState reads the saved state from dir. A missing file is not an
// error: the zero SessionState is returned.
func LoadState(dir string) (SessionState, error) {
	stateFile, lockFile := statePaths(dir)

	lock := flock.New(lockFile)
	if err := acquire(lock); err != nil {
		return SessionState{}, fmt.Errorf("locking state file: %w", err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(stateFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return SessionState{}, nil
		}
		return SessionState{}, fmt.Errorf("reading state: %w", err)
	}
	var s SessionState
	if err := json.Unmarshal(data, &s); err != nil {
		return SessionState{}, fmt.Errorf("parsing state: %w", err)
	}
	return s, nil
}

// SaveState writes the state to dir, creating it if needed.
func SaveState(dir string, s SessionState) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	stateFile, lockFile := statePaths(dir)

	lock := flock.New(lockFile)
	if err := acquire(lock); err != nil {
		return fmt.Errorf("locking state file: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	tmp := stateFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if err := os.Rename(tmp, stateFile); err != nil {
		return fmt.Errorf("replacing state: %w", err)
	}
	return nil
}
