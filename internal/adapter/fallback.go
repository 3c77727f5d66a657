package adapter

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"pingpoint/internal/domain"
)

// RouterFirstScanner asks the router first and falls back to the active
// scanner whenever the router is unavailable. The router is retried on every
// scan; a failure never sticks.
type RouterFirstScanner struct {
	primary  Scanner
	fallback Scanner
	logger   zerolog.Logger
}

// NewRouterFirstScanner creates a scanner trying primary before fallback
func NewRouterFirstScanner(primary, fallback Scanner, logger zerolog.Logger) *RouterFirstScanner {
	return &RouterFirstScanner{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("component", "router_first").Logger(),
	}
}

// Name returns the source identifier
func (r *RouterFirstScanner) Name() string {
	return "auto"
}

// Scan returns the router's records, or the fallback's if the router failed
func (r *RouterFirstScanner) Scan(ctx context.Context) ([]domain.DiscoveryRecord, error) {
	records, err := r.primary.Scan(ctx)
	if err == nil {
		return records, nil
	}
	if ctx.Err() != nil {
		return nil, errors.Join(ErrScanFailed, ctx.Err())
	}

	r.logger.Warn().Err(err).
		Str("primary", r.primary.Name()).
		Str("fallback", r.fallback.Name()).
		Msg("primary scan failed, falling back")

	records, fbErr := r.fallback.Scan(ctx)
	if fbErr != nil {
		return nil, errors.Join(ErrScanFailed, err, fbErr)
	}
	return records, nil
}
