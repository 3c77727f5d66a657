package config

import (
	"path/filepath"
	"testing"
)

func TestLive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	live := NewLive(validConfig(), path)

	var seen []string
	live.OnChange(func(c *Config) { seen = append(seen, c.HomeAssistant.WebhookURL) })

	got := live.Get()
	got.Subnets[0] = "10.9.9.0/24"
	if live.Get().Subnets[0] != "192.168.1.0/24" {
		t.Error("Get returned shared state")
	}

	next := validConfig()
	next.HomeAssistant.WebhookURL = "http://ha/hook"
	if err := live.Save(next); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	if live.Get().HomeAssistant.WebhookURL != "http://ha/hook" {
		t.Error("Save did not apply the new config")
	}
	if len(seen) != 1 || seen[0] != "http://ha/hook" {
		t.Errorf("subscribers saw %v", seen)
	}

	loaded, _, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if loaded.HomeAssistant.WebhookURL != "http://ha/hook" {
		t.Error("Save did not write the file")
	}
}

func TestLivePathDefault(t *testing.T) {
	explicit := filepath.Join(t.TempDir(), "pp.yaml")
	t.Setenv(EnvConfigPath, explicit)

	live := NewLive(DefaultConfig(), "")
	if live.Path() != explicit {
		t.Errorf("Path() = %s, want %s", live.Path(), explicit)
	}
}
