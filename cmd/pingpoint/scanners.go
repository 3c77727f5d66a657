package main

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"pingpoint/internal/adapter"
	"pingpoint/internal/config"
	"pingpoint/internal/domain"
	"pingpoint/internal/netdetect"
)

// registerScanners adds edgemax, nmap and auto. Each scanner is rebuilt from
// the live config on every scan so edits apply on the next cycle.
func registerScanners(registry *adapter.Registry, live *config.Live, logger zerolog.Logger) error {
	edgemax := adapter.Lazy(config.SourceEdgeMax, func() (adapter.Scanner, error) {
		return newEdgeMax(live.Get(), logger)
	})
	nmapScan := adapter.Lazy(config.SourceNmap, func() (adapter.Scanner, error) {
		return newNmap(live.Get(), logger)
	})
	auto := adapter.NewRouterFirstScanner(edgemax, nmapScan, logger)

	for _, s := range []adapter.Scanner{auto, edgemax, nmapScan} {
		if err := registry.Register(s); err != nil {
			return err
		}
	}
	return nil
}

func newEdgeMax(cfg *config.Config, logger zerolog.Logger) (adapter.Scanner, error) {
	return adapter.NewEdgeMaxScanner(adapter.EdgeMaxConfig{
		Host:     cfg.EdgeMax.Host,
		Port:     cfg.EdgeMax.Port,
		Username: cfg.EdgeMax.Username,
		Password: cfg.EdgeMax.Password,
		Timeout:  cfg.EdgeMax.Timeout.Duration(),
	}, logger)
}

func newNmap(cfg *config.Config, logger zerolog.Logger) (adapter.Scanner, error) {
	subnets := cfg.Subnets
	if len(subnets) == 0 {
		detected, err := netdetect.PrivateSubnets()
		if err != nil {
			return nil, err
		}
		if len(detected) == 0 {
			return nil, errors.New("no subnets configured or detected")
		}
		subnets = detected
	}
	var s adapter.Scanner = nmapScanner(cfg, subnets, logger)
	if cfg.DNS.Enabled {
		resolver, err := adapter.NewPTRResolver(s, cfg.DNS.Server, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("reverse DNS unavailable, hostnames from nmap only")
			return s, nil
		}
		s = resolver
	}
	return s, nil
}

func nmapScanner(cfg *config.Config, subnets []string, logger zerolog.Logger) *adapter.NmapScanner {
	return adapter.NewNmapScanner(subnets,
		adapter.WithScanTimeout(cfg.Nmap.ScanTimeout.Duration()),
		adapter.WithFingerprintTimeout(cfg.Nmap.FingerprintTimeout.Duration()),
		adapter.WithFingerprintPorts(cfg.Nmap.FingerprintPorts),
		adapter.WithPrivileged(!cfg.Nmap.Unprivileged),
		adapter.WithNmapLogger(logger),
	)
}

// liveProber fingerprints new devices with the current nmap settings
type liveProber struct {
	live   *config.Live
	logger zerolog.Logger
}

func (p *liveProber) Fingerprint(ctx context.Context, ip string) (*domain.Fingerprint, error) {
	cfg := p.live.Get()
	return nmapScanner(cfg, cfg.Subnets, p.logger).Fingerprint(ctx, ip)
}
