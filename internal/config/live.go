package config

import "sync"

// Live holds the configuration of the running process. Readers get copies;
// replacing the config notifies every subscriber in registration order.
type Live struct {
	mu          sync.RWMutex
	cfg         *Config
	path        string
	subscribers []func(*Config)
}

// NewLive wraps cfg, loaded from path (empty if defaults are in use)
func NewLive(cfg *Config, path string) *Live {
	return &Live{cfg: cfg.Clone(), path: path}
}

// Get returns a copy of the current config
func (l *Live) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg.Clone()
}

// Path returns the file the config is saved to, picking the default
// location when none was found at startup
func (l *Live) Path() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.path == "" {
		return DefaultConfigPath()
	}
	return l.path
}

// OnChange registers fn to run after every Set
func (l *Live) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, fn)
}

// Set replaces the config and runs subscribers outside the lock
func (l *Live) Set(cfg *Config) {
	l.mu.Lock()
	l.cfg = cfg.Clone()
	subs := append(([]func(*Config))(nil), l.subscribers...)
	l.mu.Unlock()

	for _, fn := range subs {
		fn(cfg.Clone())
	}
}

// Save writes cfg to the config path and then applies it
func (l *Live) Save(cfg *Config) error {
	path := l.Path()
	if err := cfg.Save(path); err != nil {
		return err
	}

	l.mu.Lock()
	l.path = path
	l.mu.Unlock()

	l.Set(cfg)
	return nil
}
