// Package repository defines the persistence contract for the device inventory.
//
// The inventory is stored as a flat snapshot of every known device, keyed by
// MAC address. Each save replaces the whole snapshot atomically; there are no
// partial or incremental writes. Lifecycle events and offline-debounce
// counters are deliberately not persisted.
//
// # Implementations
//
// The jsonfile subpackage writes a single JSON array to disk using
// write-to-temp-then-rename, so a crash mid-write leaves the previous file
// intact.
//
// The sqlite subpackage keeps one row per device and replaces the full set
// inside a single transaction.
//
// # Legacy data
//
// Both stores decode device entries through domain.Device, so older
// representations of the vulnerabilities field are normalized on load.
package repository
