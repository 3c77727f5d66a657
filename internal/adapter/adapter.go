package adapter

import (
	"context"
	"errors"

	"pingpoint/internal/domain"
)

var (
	// ErrScanFailed means a scan produced no information at all. It is
	// distinct from a scan that ran and found zero hosts.
	ErrScanFailed = errors.New("scan failed")

	// ErrUnknownSource is returned when a scan is requested for a name that is not registered
	ErrUnknownSource = errors.New("unknown scan source")
)

// Scanner discovers hosts and normalizes them into discovery records
type Scanner interface {
	// Name returns the unique identifier for this source
	Name() string

	// Scan runs one discovery pass. An error means the batch must not be
	// reconciled; an empty slice with a nil error means nothing was found.
	Scan(ctx context.Context) ([]domain.DiscoveryRecord, error)
}

// ScannerFactory builds a scanner from the current configuration
type ScannerFactory func() (Scanner, error)

// lazyScanner builds its scanner on every Scan so configuration edits take
// effect on the next cycle. A build failure is reported as a scan failure.
type lazyScanner struct {
	name  string
	build ScannerFactory
}

// Lazy returns a Scanner named name that calls build before each scan
func Lazy(name string, build ScannerFactory) Scanner {
	return &lazyScanner{name: name, build: build}
}

func (l *lazyScanner) Name() string {
	return l.name
}

func (l *lazyScanner) Scan(ctx context.Context) ([]domain.DiscoveryRecord, error) {
	s, err := l.build()
	if err != nil {
		return nil, errors.Join(ErrScanFailed, err)
	}
	return s.Scan(ctx)
}
