package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"pingpoint/internal/domain"
)

// Store keeps the device snapshot in a single JSON file
type Store struct {
	path string
}

// New creates a store backed by the file at path. The file is not touched until Load or Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot. A missing file is an empty inventory.
func (s *Store) Load(ctx context.Context) ([]domain.Device, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.Device{}, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var devices []domain.Device
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", s.path, err)
	}
	if devices == nil {
		devices = []domain.Device{}
	}
	return devices, nil
}

// Save writes the snapshot to a temp file in the same directory and renames
// it over the target, so readers only ever see a complete file.
func (s *Store) Save(ctx context.Context, devices []domain.Device) error {
	if devices == nil {
		devices = []domain.Device{}
	}

	data, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}

// Close is a no-op; the file is only open during Load and Save
func (s *Store) Close() error {
	return nil
}
