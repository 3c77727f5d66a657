// Package service implements the PingPoint reconciliation engine.
//
// Inventory owns the device set and folds each scan batch into it under a
// single lock. A batch is processed in two passes: every observed device is
// created, reconnected, or updated first, then devices missing from the batch
// advance their offline counters. A device is marked offline only after it
// has been missing for the configured number of consecutive batches, so one
// dropped ARP entry never flaps its status.
//
// # Events
//
// Each transition (joined, reconnected, ip_change, offline) is recorded in a
// bounded EventLog and published on the EventBus for SSE clients.
//
// # Side effects
//
// Hooks registered with OnEvent run after the state is committed and the
// snapshot written. Joined devices are announced to the webhook and then
// fingerprinted and enriched; offline devices are announced only when the
// user asked for it. Hook failures are logged and counted, never rolled back.
package service
