package repository

import (
	"context"

	"pingpoint/internal/domain"
)

// SnapshotStore persists the complete device set as one atomic snapshot
type SnapshotStore interface {
	// Load returns the stored devices. A store that has never been written
	// returns an empty slice and no error.
	Load(ctx context.Context) ([]domain.Device, error)

	// Save replaces the stored snapshot. A failed save must leave the
	// previous snapshot readable.
	Save(ctx context.Context, devices []domain.Device) error

	// Close releases resources
	Close() error
}
