package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"

	"pingpoint/internal/domain"
)

const vyattaWrapper = "/opt/vyatta/bin/vyatta-op-cmd-wrapper"

// EdgeMaxConfig holds the router connection settings
type EdgeMaxConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// Timeout bounds the TCP dial, the SSH handshake and each command
	Timeout time.Duration
}

// EdgeMaxScanner reads the ARP table and DHCP leases of a Ubiquiti EdgeMax router over SSH
type EdgeMaxScanner struct {
	cfg    EdgeMaxConfig
	logger zerolog.Logger
}

// NewEdgeMaxScanner validates cfg and creates a scanner. It does not connect.
func NewEdgeMaxScanner(cfg EdgeMaxConfig, logger zerolog.Logger) (*EdgeMaxScanner, error) {
	if cfg.Host == "" {
		return nil, errors.New("edgemax host not configured")
	}
	if cfg.Username == "" {
		return nil, errors.New("edgemax username not configured")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &EdgeMaxScanner{
		cfg:    cfg,
		logger: logger.With().Str("component", "edgemax").Str("host", cfg.Host).Logger(),
	}, nil
}

// Name returns the source identifier
func (e *EdgeMaxScanner) Name() string {
	return "edgemax"
}

// Scan collects ARP entries and DHCP leases in one SSH session
func (e *EdgeMaxScanner) Scan(ctx context.Context) ([]domain.DiscoveryRecord, error) {
	client, err := e.connect(ctx)
	if err != nil {
		return nil, errors.Join(ErrScanFailed, err)
	}
	defer client.Close()

	arp, err := e.runCommand(ctx, client, vyattaWrapper+" show arp")
	if err != nil {
		return nil, errors.Join(ErrScanFailed, fmt.Errorf("show arp: %w", err))
	}
	leases, err := e.runCommand(ctx, client, vyattaWrapper+" show dhcp leases")
	if err != nil {
		return nil, errors.Join(ErrScanFailed, fmt.Errorf("show dhcp leases: %w", err))
	}

	records := mergeRouterRecords(parseARPTable(arp), parseDHCPLeases(leases))
	e.logger.Info().Int("devices", len(records)).Msg("edgemax scan complete")
	return records, nil
}

// connect establishes an SSH connection with password authentication
func (e *EdgeMaxScanner) connect(ctx context.Context) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User: e.cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(e.cfg.Password),
		},
		// Router host keys are not pinned
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         e.cfg.Timeout,
	}

	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))

	dialer := &net.Dialer{
		Timeout: e.cfg.Timeout,
	}

	e.logger.Debug().Str("addr", addr).Msg("connecting")
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	// Bound the handshake; the deadline is cleared once the session is up
	_ = conn.SetDeadline(time.Now().Add(e.cfg.Timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to establish SSH connection: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// runCommand executes cmd and returns stdout. A non-zero exit status is an error.
func (e *EdgeMaxScanner) runCommand(ctx context.Context, client *ssh.Client, cmd string) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)

	go func() {
		out, err := session.Output(cmd)
		done <- result{out: out, err: err}
	}()

	timer := time.NewTimer(e.cfg.Timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			var exitErr *ssh.ExitError
			if errors.As(res.err, &exitErr) {
				return "", fmt.Errorf("exit status %d", exitErr.ExitStatus())
			}
			return "", fmt.Errorf("command failed: %w", res.err)
		}
		return string(res.out), nil
	case <-timer.C:
		session.Signal(ssh.SIGKILL)
		return "", fmt.Errorf("command timeout after %s", e.cfg.Timeout)
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	}
}
