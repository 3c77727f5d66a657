package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"

	"pingpoint/internal/domain"
)

// PTRResolver wraps a scanner and fills in missing hostnames with reverse DNS lookups
type PTRResolver struct {
	inner   Scanner
	server  string
	client  *dns.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewPTRResolver queries server ("host:port"). An empty server uses the
// first nameserver in /etc/resolv.conf.
func NewPTRResolver(inner Scanner, server string, logger zerolog.Logger) (*PTRResolver, error) {
	if server == "" {
		conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, fmt.Errorf("read resolv.conf: %w", err)
		}
		if len(conf.Servers) == 0 {
			return nil, errors.New("no nameserver in resolv.conf")
		}
		server = net.JoinHostPort(conf.Servers[0], conf.Port)
	} else if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}

	timeout := 2 * time.Second
	return &PTRResolver{
		inner:   inner,
		server:  server,
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		timeout: timeout,
		logger:  logger.With().Str("component", "ptr").Str("server", server).Logger(),
	}, nil
}

// Name returns the wrapped scanner's name
func (p *PTRResolver) Name() string {
	return p.inner.Name()
}

// Scan runs the wrapped scanner and resolves hostnames it left empty.
// Lookup failures leave the hostname empty.
func (p *PTRResolver) Scan(ctx context.Context) ([]domain.DiscoveryRecord, error) {
	records, err := p.inner.Scan(ctx)
	if err != nil {
		return nil, err
	}

	for i := range records {
		rec := &records[i]
		if rec.Hostname != "" || !domain.UsableIP(rec.IP) {
			continue
		}
		name, err := p.lookup(ctx, rec.IP)
		if err != nil {
			p.logger.Debug().Err(err).Str("ip", rec.IP).Msg("reverse lookup failed")
			continue
		}
		rec.Hostname = name
	}
	return records, nil
}

// lookup returns the short host name for ip
func (p *PTRResolver) lookup(ctx context.Context, ip string) (string, error) {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", err
	}

	m := new(dns.Msg)
	m.SetQuestion(arpa, dns.TypePTR)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, _, err := p.client.ExchangeContext(ctx, m, p.server)
	if err != nil {
		return "", err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return "", fmt.Errorf("rcode %s", dns.RcodeToString[resp.Rcode])
	}

	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return shortName(ptr.Ptr), nil
		}
	}
	return "", errors.New("no PTR record")
}

// shortName strips the domain from an FQDN, keeping it when the first label is too short to be useful
func shortName(fqdn string) string {
	name := strings.TrimSuffix(fqdn, ".")
	if idx := strings.Index(name, "."); idx > 2 {
		return name[:idx]
	}
	return name
}
