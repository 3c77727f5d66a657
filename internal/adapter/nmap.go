package adapter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/rs/zerolog"

	"pingpoint/internal/domain"
)

// nmapRunner runs one nmap invocation; replaced in tests
type nmapRunner func(ctx context.Context, opts ...nmap.Option) (*nmap.Run, []string, error)

// NmapScanner discovers hosts with an nmap ping sweep and fingerprints single hosts
type NmapScanner struct {
	subnets            []string
	scanTimeout        time.Duration
	fingerprintTimeout time.Duration
	portRange          string
	privileged         bool
	logger             zerolog.Logger
	run                nmapRunner
}

// NewNmapScanner creates a scanner for the given subnets (CIDR ranges or single IPs)
func NewNmapScanner(subnets []string, opts ...NmapOption) *NmapScanner {
	scanner := &NmapScanner{
		subnets:            subnets,
		scanTimeout:        5 * time.Minute,
		fingerprintTimeout: 10 * time.Minute,
		privileged:         true,
		logger:             zerolog.Nop(),
		run:                runNmap,
	}

	for _, opt := range opts {
		opt(scanner)
	}

	return scanner
}

// Name returns the source identifier
func (n *NmapScanner) Name() string {
	return "nmap"
}

// Scan ping-sweeps every subnet. A failing subnet is logged and skipped;
// the scan fails only when no subnet could be scanned.
func (n *NmapScanner) Scan(ctx context.Context) ([]domain.DiscoveryRecord, error) {
	if len(n.subnets) == 0 {
		return nil, errors.Join(ErrScanFailed, errors.New("no subnets configured"))
	}

	n.logger.Info().Strs("subnets", n.subnets).Msg("starting nmap ping sweep")

	var (
		records  []domain.DiscoveryRecord
		failures int
		lastErr  error
	)
	for _, subnet := range n.subnets {
		found, err := n.scanSubnet(ctx, subnet)
		if err != nil {
			n.logger.Error().Err(err).Str("subnet", subnet).Msg("nmap scan failed")
			failures++
			lastErr = err
			continue
		}
		records = append(records, found...)
	}

	if failures == len(n.subnets) {
		return nil, errors.Join(ErrScanFailed, lastErr)
	}

	n.logger.Info().Int("hosts", len(records)).Msg("nmap ping sweep finished")
	return records, nil
}

func (n *NmapScanner) scanSubnet(ctx context.Context, subnet string) ([]domain.DiscoveryRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, n.scanTimeout)
	defer cancel()

	opts := []nmap.Option{
		nmap.WithTargets(subnet),
		nmap.WithPingScan(),
	}
	if n.privileged {
		opts = append(opts, nmap.WithPrivileged())
	}

	result, warnings, err := n.run(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		n.logger.Warn().Strs("warnings", warnings).Str("subnet", subnet).Msg("nmap warnings")
	}

	return recordsFromRun(result, subnet), nil
}

// Fingerprint runs an aggressive scan (-A) of one host. It returns nil
// without error when the host is down.
func (n *NmapScanner) Fingerprint(ctx context.Context, ip string) (*domain.Fingerprint, error) {
	ctx, cancel := context.WithTimeout(ctx, n.fingerprintTimeout)
	defer cancel()

	opts := []nmap.Option{
		nmap.WithTargets(ip),
		nmap.WithAggressiveScan(),
	}
	if n.portRange != "" {
		opts = append(opts, nmap.WithPorts(n.portRange))
	}

	n.logger.Info().Str("ip", ip).Msg("starting fingerprint scan")
	result, _, err := n.run(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %s: %w", ip, err)
	}

	return fingerprintFromRun(result), nil
}

func runNmap(ctx context.Context, opts ...nmap.Option) (*nmap.Run, []string, error) {
	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("scan failed: %w", err)
	}

	var w []string
	if warnings != nil {
		w = *warnings
	}
	return result, w, nil
}

// recordsFromRun converts live hosts with a hardware address into records
func recordsFromRun(result *nmap.Run, subnet string) []domain.DiscoveryRecord {
	if result == nil {
		return nil
	}

	var records []domain.DiscoveryRecord
	for _, host := range result.Hosts {
		if host.Status.State != "up" {
			continue
		}

		rec := domain.DiscoveryRecord{Subnet: subnet}
		for _, addr := range host.Addresses {
			switch addr.AddrType {
			case "ipv4":
				rec.IP = addr.Addr
			case "mac":
				rec.MAC = addr.Addr
				rec.Vendor = addr.Vendor
			}
		}
		if len(host.Hostnames) > 0 {
			rec.Hostname = host.Hostnames[0].Name
		}

		// The scanning host itself has no MAC in nmap output
		if rec.MAC == "" {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// fingerprintFromRun extracts the best OS match and open ports of the first host
func fingerprintFromRun(result *nmap.Run) *domain.Fingerprint {
	if result == nil || len(result.Hosts) == 0 {
		return nil
	}
	host := result.Hosts[0]
	if host.Status.State != "up" {
		return nil
	}

	fp := &domain.Fingerprint{Ports: []domain.PortInfo{}}

	if len(host.Hostnames) > 0 {
		fp.Hostname = host.Hostnames[0].Name
	}

	// Use first (best) match
	if len(host.OS.Matches) > 0 {
		match := host.OS.Matches[0]
		fp.OSMatch = match.Name
		fp.OSAccuracy = fmt.Sprint(match.Accuracy)
	}

	for _, port := range host.Ports {
		if port.State.State != "open" {
			continue
		}
		serviceName := port.Service.Name
		if serviceName == "" {
			serviceName = "unknown"
		}
		fp.Ports = append(fp.Ports, domain.PortInfo{
			PortID:      strconv.Itoa(int(port.ID)),
			Protocol:    port.Protocol,
			ServiceName: serviceName,
			Product:     port.Service.Product,
			Version:     port.Service.Version,
		})
	}

	return fp
}

// ParsePorts validates an nmap port list
// Supported: "80,443,8080" or "1-1000" or "22,80-443,8080"
func ParsePorts(portRange string) (string, error) {
	parts := strings.Split(portRange, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.Contains(part, "-") {
			rangeParts := strings.Split(part, "-")
			if len(rangeParts) != 2 {
				return "", fmt.Errorf("invalid port range: %s", part)
			}
			start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil || start < 1 || start > 65535 {
				return "", fmt.Errorf("invalid port number: %s", rangeParts[0])
			}
			end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil || end < 1 || end > 65535 || end < start {
				return "", fmt.Errorf("invalid port number: %s", rangeParts[1])
			}
		} else {
			port, err := strconv.Atoi(part)
			if err != nil || port < 1 || port > 65535 {
				return "", fmt.Errorf("invalid port number: %s", part)
			}
		}
	}
	return portRange, nil
}
