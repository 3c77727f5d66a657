// Package adapter implements the discovery sources for PingPoint.
//
// Every source implements Scanner and reports hosts as domain.DiscoveryRecord
// values. A scan either returns a batch (possibly empty) or an error; a failed
// scan is never reconciled, so a router outage cannot mark the whole network
// offline.
//
// # Sources
//
// EdgeMaxScanner logs into an EdgeRouter over SSH and reads its ARP table and
// DHCP leases. It is passive and sees every host the router knows about.
//
// NmapScanner runs a ping sweep over the configured subnets. It also provides
// Fingerprint, an aggressive scan of a single address used when a new device
// joins.
//
// RouterFirstScanner ("auto") tries the router and falls back to nmap for
// that cycle only. PTRResolver wraps any source and fills empty hostnames
// from reverse DNS.
//
// # Registry
//
// Registry holds the named sources, runs the default one on an interval or
// cron schedule, and serves manual scan requests. Scans are serialized.
package adapter
