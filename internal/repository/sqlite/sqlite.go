package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pingpoint/internal/domain"

	_ "modernc.org/sqlite"
)

// Store keeps the device snapshot in a SQLite table, one row per device
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and applies the schema
func New(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS devices (
		mac TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		last_seen DATETIME NOT NULL,
		data JSON NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_devices_status ON devices(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Load returns every stored device ordered by MAC
func (s *Store) Load(ctx context.Context) ([]domain.Device, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mac, data FROM devices ORDER BY mac`)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	devices := []domain.Device{}
	for rows.Next() {
		var (
			mac  string
			data []byte
		)
		if err := rows.Scan(&mac, &data); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}

		var d domain.Device
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal device %s: %w", mac, err)
		}
		// Indexed column is the source of truth for the key
		d.MAC = mac
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}

// Save replaces the stored set with devices in one transaction
func (s *Store) Save(ctx context.Context, devices []domain.Device) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM devices`); err != nil {
		return fmt.Errorf("failed to clear devices: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO devices (mac, status, last_seen, data, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range devices {
		d := &devices[i]
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to marshal device %s: %w", d.MAC, err)
		}
		if _, err := stmt.ExecContext(ctx, d.MAC, string(d.Status), d.LastSeen.UTC().Format(time.RFC3339Nano), data); err != nil {
			return fmt.Errorf("failed to insert device %s: %w", d.MAC, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
