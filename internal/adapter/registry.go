package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"pingpoint/internal/domain"
	"pingpoint/internal/metrics"
)

// ReconcileFunc receives every successful scan batch
type ReconcileFunc func(ctx context.Context, source string, records []domain.DiscoveryRecord)

// Registry owns the scan sources and runs them periodically and on demand.
// Scans are serialized; a failed scan is logged and never reconciled.
type Registry struct {
	mu            sync.RWMutex
	scanners      map[string]Scanner
	defaultSource string
	interval      time.Duration
	schedule      cron.Schedule

	reconcile  ReconcileFunc
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	scanMu     sync.Mutex
	reschedule chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a registry that scans every interval
func NewRegistry(reconcile ReconcileFunc, interval time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Registry {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &Registry{
		scanners:   make(map[string]Scanner),
		interval:   interval,
		reconcile:  reconcile,
		metrics:    m,
		logger:     logger.With().Str("component", "registry").Logger(),
		reschedule: make(chan struct{}, 1),
	}
}

// Register adds a scan source. The first registered source is the default
// used by the periodic loop until SetDefault is called.
func (r *Registry) Register(s Scanner) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.scanners[name]; exists {
		return fmt.Errorf("scanner %s already registered", name)
	}
	r.scanners[name] = s
	if r.defaultSource == "" {
		r.defaultSource = name
	}
	r.logger.Info().Str("source", name).Msg("registered scanner")
	return nil
}

// SetDefault selects the source used by the periodic loop
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.scanners[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	r.defaultSource = name
	return nil
}

// Sources lists registered source names
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetSchedule changes the cycle timing. A non-empty cron expression (standard
// five-field syntax) takes precedence over the interval.
func (r *Registry) SetSchedule(interval time.Duration, cronExpr string) error {
	var schedule cron.Schedule
	if cronExpr != "" {
		s, err := cron.ParseStandard(cronExpr)
		if err != nil {
			return fmt.Errorf("invalid scan schedule %q: %w", cronExpr, err)
		}
		schedule = s
	}

	r.mu.Lock()
	if interval > 0 {
		r.interval = interval
	}
	r.schedule = schedule
	r.mu.Unlock()

	select {
	case r.reschedule <- struct{}{}:
	default:
	}
	return nil
}

// Start runs one cycle immediately and then keeps scanning on schedule until Stop
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	r.wg.Add(1)
	go r.loop()
}

// Stop cancels the loop and waits for running scans. A cycle that already
// has its records still commits and persists before Stop returns; its
// pending side effects see the cancellation.
func (r *Registry) Stop() {
	r.mu.RLock()
	cancel := r.cancel
	r.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// TriggerScan starts a scan of one source in the background
func (r *Registry) TriggerScan(name string) error {
	r.mu.RLock()
	s, ok := r.scanners[name]
	ctx := r.ctx
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.runScan(ctx, s)
	}()
	return nil
}

// scanNow scans one source and reconciles the result synchronously
func (r *Registry) scanNow(ctx context.Context, name string) error {
	r.mu.RLock()
	s, ok := r.scanners[name]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return r.runScan(ctx, s)
}

func (r *Registry) loop() {
	defer r.wg.Done()

	r.runDefault()

	for {
		timer := time.NewTimer(r.nextDelay(time.Now()))
		select {
		case <-r.ctx.Done():
			timer.Stop()
			r.logger.Info().Msg("scan loop stopped")
			return
		case <-r.reschedule:
			timer.Stop()
		case <-timer.C:
			r.runDefault()
		}
	}
}

func (r *Registry) runDefault() {
	r.mu.RLock()
	name := r.defaultSource
	r.mu.RUnlock()

	if name == "" {
		r.logger.Warn().Msg("no scanner registered")
		return
	}
	_ = r.scanNow(r.ctx, name)
}

// nextDelay returns how long to sleep before the next cycle
func (r *Registry) nextDelay(now time.Time) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.schedule != nil {
		if d := r.schedule.Next(now).Sub(now); d > 0 {
			return d
		}
	}
	return r.interval
}

// runScan executes a scan and reconciles the result. A batch that was
// scanned is always handed to reconcile; ctx is passed through so side
// effects started by reconcile stop on shutdown.
func (r *Registry) runScan(ctx context.Context, s Scanner) error {
	r.scanMu.Lock()
	defer r.scanMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	name := s.Name()
	start := time.Now()
	records, err := s.Scan(ctx)
	duration := time.Since(start)
	r.metrics.ObserveScan(name, duration, err)

	if err != nil {
		r.logger.Error().Err(err).Str("source", name).Dur("duration", duration).Msg("scan failed, skipping cycle")
		return fmt.Errorf("scan %s: %w", name, err)
	}

	r.logger.Info().Str("source", name).Int("records", len(records)).Dur("duration", duration).Msg("scan complete")
	r.reconcile(ctx, name, records)
	return nil
}
