// Package domain defines the core types of the PingPoint device inventory.
//
// Device is the inventory entry, keyed by its normalized MAC address. It
// carries the addresses the device has used, the names discovered for it,
// the user's own name and notes, and an optional fingerprint.
//
// DiscoveryRecord is one host as reported by a single scan source.
// MergeRecords collapses a batch into one MergedRecord per MAC, gathering all
// reported addresses.
//
// Event records a lifecycle transition: device_joined, device_reconnected,
// ip_change, or device_offline.
package domain
