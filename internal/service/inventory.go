package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pingpoint/internal/domain"
	"pingpoint/internal/metrics"
	"pingpoint/internal/repository"
)

// DefaultOfflineThreshold is the number of consecutive missed scans before a device is marked offline
const DefaultOfflineThreshold = 2

// ErrDeviceNotFound is returned for operations on a MAC the inventory has never seen
var ErrDeviceNotFound = errors.New("device not found")

// ReconcileResult summarizes one reconciliation call
type ReconcileResult struct {
	Seen   int
	Events []domain.Event
}

// Inventory owns the device set, the event log and the offline counters.
// Every mutation happens under mu; readers get deep copies.
type Inventory struct {
	mu            sync.RWMutex
	devices       map[string]*domain.Device
	events        *EventLog
	offlineCounts map[string]int
	threshold     int

	// saveMu keeps snapshots reaching the store in commit order
	saveMu sync.Mutex
	store  repository.SnapshotStore

	notifier Notifier
	prober   Prober
	enricher Enricher

	hooksMu sync.RWMutex
	hooks   map[domain.EventType][]namedHook

	bus     *EventBus
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
	logSize int
}

// Option configures an Inventory
type Option func(*Inventory)

// WithThreshold sets the offline debounce threshold
func WithThreshold(n int) Option {
	return func(inv *Inventory) {
		if n > 0 {
			inv.threshold = n
		}
	}
}

// WithNotifier sets the webhook collaborator
func WithNotifier(n Notifier) Option {
	return func(inv *Inventory) { inv.notifier = n }
}

// WithProber sets the deep fingerprint collaborator
func WithProber(p Prober) Option {
	return func(inv *Inventory) { inv.prober = p }
}

// WithEnricher sets the enrichment collaborator
func WithEnricher(e Enricher) Option {
	return func(inv *Inventory) { inv.enricher = e }
}

// WithEventBus publishes every committed event to bus
func WithEventBus(bus *EventBus) Option {
	return func(inv *Inventory) { inv.bus = bus }
}

// WithMetrics records lifecycle and side-effect metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(inv *Inventory) { inv.metrics = m }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(inv *Inventory) { inv.logger = logger.With().Str("component", "inventory").Logger() }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(inv *Inventory) { inv.now = now }
}

// WithEventLogSize sets how many events are kept
func WithEventLogSize(n int) Option {
	return func(inv *Inventory) { inv.logSize = n }
}

// NewInventory creates an empty inventory persisting to store. A nil store disables persistence.
func NewInventory(store repository.SnapshotStore, opts ...Option) *Inventory {
	inv := &Inventory{
		devices:       make(map[string]*domain.Device),
		offlineCounts: make(map[string]int),
		threshold:     DefaultOfflineThreshold,
		store:         store,
		hooks:         make(map[domain.EventType][]namedHook),
		logger:        zerolog.Nop(),
		now:           time.Now,
		logSize:       DefaultEventLogSize,
	}
	for _, opt := range opts {
		opt(inv)
	}
	inv.events = NewEventLog(inv.logSize)
	inv.registerDefaultHooks()
	return inv
}

// SetThreshold changes the offline debounce threshold for subsequent cycles
func (inv *Inventory) SetThreshold(n int) {
	if n <= 0 {
		return
	}
	inv.mu.Lock()
	inv.threshold = n
	inv.mu.Unlock()
}

// Reconcile folds one scan batch into the inventory, writes a snapshot and
// then dispatches side effects. The commit and the snapshot ignore ctx
// cancellation; side effects observe it. Side-effect and persistence
// failures are logged and never undo the committed state.
func (inv *Inventory) Reconcile(ctx context.Context, records []domain.DiscoveryRecord, notifyTarget string) ReconcileResult {
	merged := domain.MergeRecords(records)

	inv.mu.Lock()
	events := inv.applyLocked(merged)
	online, offline := inv.countLocked()
	inv.mu.Unlock()

	for _, ev := range events {
		inv.metrics.IncLifecycleEvent(string(ev.Type))
		if inv.bus != nil {
			inv.bus.Publish(ev)
		}
		inv.logger.Info().
			Str("event", string(ev.Type)).
			Str("mac", ev.Device.MAC).
			Msg(ev.Message)
	}
	inv.metrics.SetDeviceCounts(online, offline)

	if err := inv.SaveSnapshot(context.WithoutCancel(ctx)); err != nil {
		inv.logger.Error().Err(err).Msg("failed to persist snapshot after reconcile")
	}

	inv.dispatch(ctx, events, notifyTarget)

	inv.logger.Debug().Int("seen", len(merged)).Int("events", len(events)).Msg("reconcile complete")
	return ReconcileResult{Seen: len(merged), Events: events}
}

// applyLocked runs the state machine for one batch. Observed devices are
// processed before the offline sweep so presence always wins.
func (inv *Inventory) applyLocked(merged []domain.MergedRecord) []domain.Event {
	now := inv.now()
	present := make(map[string]struct{}, len(merged))
	var events []domain.Event

	for _, rec := range merged {
		present[rec.MAC] = struct{}{}
		delete(inv.offlineCounts, rec.MAC)

		d, ok := inv.devices[rec.MAC]
		if !ok {
			d = domain.NewDevice(rec, now)
			inv.devices[d.MAC] = d
			events = inv.emitLocked(events, domain.EventJoined, d, fmt.Sprintf("New device joined: %s", d.FriendlyName), now)
			continue
		}

		if d.Status == domain.DeviceStatusOffline {
			d.Status = domain.DeviceStatusOnline
			events = inv.emitLocked(events, domain.EventReconnected, d, fmt.Sprintf("Device reconnected: %s", d.FriendlyName), now)
		}

		for _, ip := range rec.IPs {
			if d.HasIP(ip) {
				continue
			}
			d.IPAddresses = append(d.IPAddresses, ip)
			events = inv.emitLocked(events, domain.EventIPChange, d, fmt.Sprintf("IP changed for %s: %s", d.FriendlyName, ip), now)
		}

		if d.Hostname == "" && rec.Hostname != "" {
			d.Hostname = rec.Hostname
			if d.HasDefaultName() {
				d.FriendlyName = rec.Hostname
			}
		}
		if d.Vendor == "" && rec.Vendor != "" {
			d.Vendor = rec.Vendor
		}
		if rec.Subnet != "" {
			d.Subnet = rec.Subnet
		}
		d.LastSeen = now
	}

	// Sorted so offline events come out in a stable order
	macs := make([]string, 0, len(inv.devices))
	for mac, d := range inv.devices {
		if _, seen := present[mac]; seen || d.Status != domain.DeviceStatusOnline {
			continue
		}
		macs = append(macs, mac)
	}
	sort.Strings(macs)

	for _, mac := range macs {
		inv.offlineCounts[mac]++
		if inv.offlineCounts[mac] < inv.threshold {
			continue
		}
		d := inv.devices[mac]
		d.Status = domain.DeviceStatusOffline
		delete(inv.offlineCounts, mac)
		events = inv.emitLocked(events, domain.EventOffline, d, fmt.Sprintf("Device went offline: %s", d.FriendlyName), now)
	}

	return events
}

func (inv *Inventory) emitLocked(events []domain.Event, eventType domain.EventType, d *domain.Device, msg string, now time.Time) []domain.Event {
	ev := domain.NewEvent(eventType, d, msg, now)
	inv.events.Add(ev)
	return append(events, ev)
}

func (inv *Inventory) countLocked() (online, offline int) {
	for _, d := range inv.devices {
		if d.Status == domain.DeviceStatusOnline {
			online++
		} else {
			offline++
		}
	}
	return online, offline
}

// ListDevices returns a copy of every device ordered by MAC
func (inv *Inventory) ListDevices() []domain.Device {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := make([]domain.Device, 0, len(inv.devices))
	for _, d := range inv.devices {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MAC < out[j].MAC })
	return out
}

// ListEvents returns the retained events, newest first
func (inv *Inventory) ListEvents() []domain.Event {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.events.List()
}

// Device returns a copy of one device
func (inv *Inventory) Device(mac string) (domain.Device, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	d, ok := inv.devices[domain.NormalizeMAC(mac)]
	if !ok {
		return domain.Device{}, false
	}
	return d.Clone(), true
}

// UpdateUserFields applies the user-editable fields of one device and
// persists. An empty friendly name resets it to the MAC.
func (inv *Inventory) UpdateUserFields(ctx context.Context, mac, friendlyName, notes string, alertOnOffline bool) (domain.Device, error) {
	mac = domain.NormalizeMAC(mac)

	inv.mu.Lock()
	d, ok := inv.devices[mac]
	if !ok {
		inv.mu.Unlock()
		return domain.Device{}, ErrDeviceNotFound
	}
	if friendlyName == "" {
		friendlyName = d.MAC
	}
	d.FriendlyName = friendlyName
	d.Notes = notes
	d.AlertOnOffline = alertOnOffline
	updated := d.Clone()
	inv.mu.Unlock()

	if err := inv.SaveSnapshot(context.WithoutCancel(ctx)); err != nil {
		inv.logger.Error().Err(err).Str("mac", mac).Msg("failed to persist snapshot after user update")
	}
	return updated, nil
}

// LoadSnapshot replaces the in-memory set with the stored one. Any status
// other than online loads as offline. On error the inventory is left empty
// and the error is returned for the caller to log.
func (inv *Inventory) LoadSnapshot(ctx context.Context) error {
	var (
		devices []domain.Device
		err     error
	)
	if inv.store != nil {
		devices, err = inv.store.Load(ctx)
		if err != nil {
			devices = nil
			err = fmt.Errorf("load snapshot: %w", err)
		}
	}

	inv.mu.Lock()
	inv.devices = make(map[string]*domain.Device, len(devices))
	inv.offlineCounts = make(map[string]int)
	for i := range devices {
		d := devices[i]
		d.MAC = domain.NormalizeMAC(d.MAC)
		if d.MAC == "" {
			continue
		}
		if d.FriendlyName == "" {
			d.FriendlyName = d.MAC
		}
		if d.Status != domain.DeviceStatusOnline {
			d.Status = domain.DeviceStatusOffline
		}
		inv.devices[d.MAC] = &d
	}
	online, offline := inv.countLocked()
	inv.mu.Unlock()

	inv.metrics.SetDeviceCounts(online, offline)
	if err == nil {
		inv.logger.Info().Int("devices", online+offline).Msg("loaded snapshot")
	}
	return err
}

// SaveSnapshot writes the current device set to the store
func (inv *Inventory) SaveSnapshot(ctx context.Context) error {
	if inv.store == nil {
		return nil
	}

	inv.saveMu.Lock()
	defer inv.saveMu.Unlock()

	if err := inv.store.Save(ctx, inv.ListDevices()); err != nil {
		inv.metrics.IncSnapshotFailure()
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
