package service

import (
	"context"
	"fmt"

	"pingpoint/internal/domain"
)

// Notifier posts a lifecycle event to a webhook. An empty target is a no-op.
type Notifier interface {
	Notify(ctx context.Context, target string, eventType domain.EventType, device domain.Device) error
}

// Enricher annotates a device from a third-party lookup. It returns true if
// it changed the device, and false with a nil error when there is no data.
type Enricher interface {
	Enrich(ctx context.Context, device *domain.Device) (bool, error)
}

// Prober runs the one-time deep fingerprint of a new device
type Prober interface {
	Fingerprint(ctx context.Context, ip string) (*domain.Fingerprint, error)
}

// Hook runs after an event has been committed. Errors and panics are logged
// and counted; they never affect inventory state or other hooks.
type Hook func(ctx context.Context, event domain.Event, notifyTarget string) error

type namedHook struct {
	name string
	fn   Hook
}

// OnEvent registers a hook for one event type. Hooks run in registration order.
func (inv *Inventory) OnEvent(eventType domain.EventType, name string, fn Hook) {
	inv.hooksMu.Lock()
	defer inv.hooksMu.Unlock()
	inv.hooks[eventType] = append(inv.hooks[eventType], namedHook{name: name, fn: fn})
}

func (inv *Inventory) registerDefaultHooks() {
	inv.OnEvent(domain.EventJoined, "notify", inv.notifyHook)
	inv.OnEvent(domain.EventJoined, "fingerprint", inv.fingerprintHook)
	inv.OnEvent(domain.EventOffline, "notify", func(ctx context.Context, ev domain.Event, target string) error {
		if !ev.Device.AlertOnOffline {
			return nil
		}
		return inv.notifyHook(ctx, ev, target)
	})
}

func (inv *Inventory) dispatch(ctx context.Context, events []domain.Event, notifyTarget string) {
	for _, ev := range events {
		inv.hooksMu.RLock()
		hooks := append([]namedHook(nil), inv.hooks[ev.Type]...)
		inv.hooksMu.RUnlock()

		for _, h := range hooks {
			if ctx.Err() != nil {
				inv.logger.Warn().Str("hook", h.name).Str("mac", ev.Device.MAC).Msg("shutting down, side effect skipped")
				continue
			}
			inv.runHook(ctx, h, ev, notifyTarget)
		}
	}
}

func (inv *Inventory) runHook(ctx context.Context, h namedHook, ev domain.Event, notifyTarget string) {
	defer func() {
		if r := recover(); r != nil {
			inv.metrics.IncHookFailure(h.name)
			inv.logger.Error().
				Str("hook", h.name).
				Str("event", string(ev.Type)).
				Str("mac", ev.Device.MAC).
				Interface("panic", r).
				Msg("side effect panicked")
		}
	}()

	if err := h.fn(ctx, ev, notifyTarget); err != nil {
		inv.metrics.IncHookFailure(h.name)
		inv.logger.Error().
			Err(err).
			Str("hook", h.name).
			Str("event", string(ev.Type)).
			Str("mac", ev.Device.MAC).
			Msg("side effect failed")
	}
}

func (inv *Inventory) notifyHook(ctx context.Context, ev domain.Event, target string) error {
	if inv.notifier == nil || target == "" {
		return nil
	}
	if err := inv.notifier.Notify(ctx, target, ev.Type, ev.Device); err != nil {
		return fmt.Errorf("notify %s: %w", ev.Type, err)
	}
	return nil
}

// fingerprintHook probes a newly joined device and enriches it. Work happens
// on a copy; results are merged back under the lock.
func (inv *Inventory) fingerprintHook(ctx context.Context, ev domain.Event, _ string) error {
	if inv.prober == nil || len(ev.Device.IPAddresses) == 0 {
		return nil
	}
	ip := ev.Device.IPAddresses[0]
	if !domain.UsableIP(ip) {
		return nil
	}

	fp, err := inv.prober.Fingerprint(ctx, ip)
	if err != nil {
		return fmt.Errorf("fingerprint %s: %w", ip, err)
	}
	if fp == nil {
		return nil
	}

	candidate := ev.Device.Clone()
	candidate.Fingerprint = fp

	var (
		enriched  bool
		enrichErr error
	)
	if inv.enricher != nil {
		enriched, enrichErr = inv.enricher.Enrich(ctx, &candidate)
		if enrichErr != nil {
			enriched = false
		}
	}

	if !inv.applyProbe(candidate, enriched) {
		return nil
	}
	if err := inv.SaveSnapshot(context.WithoutCancel(ctx)); err != nil {
		inv.logger.Error().Err(err).Str("mac", candidate.MAC).Msg("failed to persist snapshot after fingerprint")
	}

	if enrichErr != nil {
		return fmt.Errorf("enrich %s: %w", candidate.MAC, enrichErr)
	}
	return nil
}

// applyProbe merges probe and enrichment results into the live device.
// A name set by a person since the probe started is kept.
func (inv *Inventory) applyProbe(candidate domain.Device, enriched bool) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	d, ok := inv.devices[candidate.MAC]
	if !ok {
		return false
	}
	if d.Fingerprint == nil {
		d.Fingerprint = candidate.Fingerprint
	}
	if !enriched {
		return true
	}

	if candidate.Vendor != "" {
		d.Vendor = candidate.Vendor
	}
	if candidate.Category != "" {
		d.Category = candidate.Category
	}
	d.Vulnerabilities = candidate.Vulnerabilities
	if d.HasDefaultName() && candidate.FriendlyName != "" && candidate.FriendlyName != candidate.MAC {
		d.FriendlyName = candidate.FriendlyName
	}
	return true
}
