package adapter

import (
	"time"

	"github.com/rs/zerolog"
)

// NmapOption is a functional option for configuring NmapScanner
type NmapOption func(*NmapScanner)

// WithScanTimeout bounds the ping sweep of each subnet
func WithScanTimeout(d time.Duration) NmapOption {
	return func(n *NmapScanner) {
		if d > 0 {
			n.scanTimeout = d
		}
	}
}

// WithFingerprintTimeout bounds the aggressive scan of one host
func WithFingerprintTimeout(d time.Duration) NmapOption {
	return func(n *NmapScanner) {
		if d > 0 {
			n.fingerprintTimeout = d
		}
	}
}

// WithFingerprintPorts limits the fingerprint scan to a port list
// Format: "80,443,8080" or "1-1000" or "22,80-443,8080"; invalid lists are ignored
func WithFingerprintPorts(ports string) NmapOption {
	return func(n *NmapScanner) {
		if validated, err := ParsePorts(ports); err == nil {
			n.portRange = validated
		}
	}
}

// WithPrivileged sets whether nmap assumes raw socket privileges (--privileged)
// ARP-based MAC discovery needs them
func WithPrivileged(enabled bool) NmapOption {
	return func(n *NmapScanner) {
		n.privileged = enabled
	}
}

// WithNmapLogger sets the logger
func WithNmapLogger(logger zerolog.Logger) NmapOption {
	return func(n *NmapScanner) {
		n.logger = logger.With().Str("component", "nmap").Logger()
	}
}
