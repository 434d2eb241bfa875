// Package checkpoint persists per-story scan checkpoints as JSON files so
// scheduler state survives restarts.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidStoryID is returned when a story ID cannot be used in a file
// path.
var ErrInvalidStoryID = errors.New("invalid story ID: contains path traversal or invalid characters")

// ScanCheckpoint records the last completed scan for one story.
type ScanCheckpoint struct {
	StoryID             string    `json:"story_id"`
	LastRun             time.Time `json:"last_run"`
	TotalContradictions int       `json:"total_contradictions"`
	ScanDurationSeconds float64   `json:"scan_duration_seconds"`
	LastError           string    `json:"last_error,omitempty"`
}

// Manager reads and writes scan checkpoints under a directory.
type Manager struct {
	dir string
}

// NewManager creates a checkpoint manager. An empty dir defaults to a
// directory under os.TempDir().
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "continuity-checkpoints")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// validateStoryID rejects IDs that would escape the checkpoint directory.
func validateStoryID(storyID string) error {
	if storyID == "" ||
		strings.Contains(storyID, "..") ||
		strings.ContainsAny(storyID, `/\`) ||
		strings.ContainsRune(storyID, '\x00') {
		return ErrInvalidStoryID
	}
	return nil
}

func (m *Manager) path(storyID string) string {
	return filepath.Join(m.dir, storyID+".json")
}

// Save writes a checkpoint, replacing any previous one for the story.
func (m *Manager) Save(cp *ScanCheckpoint) error {
	if err := validateStoryID(cp.StoryID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	tmp := m.path(cp.StoryID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return os.Rename(tmp, m.path(cp.StoryID))
}

// Load reads the checkpoint for a story. A missing checkpoint returns
// (nil, nil).
func (m *Manager) Load(storyID string) (*ScanCheckpoint, error) {
	if err := validateStoryID(storyID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(m.path(storyID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	cp := &ScanCheckpoint{}
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return cp, nil
}

// Latest returns the most recent checkpoint across all stories, or nil
// when none exist.
func (m *Manager) Latest() (*ScanCheckpoint, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	var latest *ScanCheckpoint
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".json")
		if !ok {
			continue
		}
		cp, err := m.Load(name)
		if err != nil || cp == nil {
			continue
		}
		if latest == nil || cp.LastRun.After(latest.LastRun) {
			latest = cp
		}
	}
	return latest, nil
}
