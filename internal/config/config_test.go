package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadHub_Defaults(t *testing.T) {
	cfg, err := LoadHub()
	if err != nil {
		t.Fatalf("LoadHub: %v", err)
	}
	if cfg.Port != DefaultHubPort {
		t.Errorf("Port: got %q, want %q", cfg.Port, DefaultHubPort)
	}
	if cfg.Sensitivity != 0.7 {
		t.Errorf("Sensitivity: got %v, want 0.7", cfg.Sensitivity)
	}
	if !cfg.Enabled {
		t.Error("Enabled should default to true")
	}
}

func TestLoadAgent_FromEnv(t *testing.T) {
	t.Setenv("REGISTRY_URL", "http://hub.local:9000")
	t.Setenv("GESTURE_COOLDOWN", "2s")
	t.Setenv("GESTURE_STORE_PATH", "/tmp/mirror.db")

	cfg, err := LoadAgent()
	if err != nil {
		t.Fatalf("LoadAgent: %v", err)
	}
	if cfg.RegistryURL != "http://hub.local:9000" {
		t.Errorf("RegistryURL: got %q", cfg.RegistryURL)
	}
	if cfg.Cooldown != 2*time.Second {
		t.Errorf("Cooldown: got %v, want 2s", cfg.Cooldown)
	}
	if cfg.StorePath != "/tmp/mirror.db" {
		t.Errorf("StorePath: got %q", cfg.StorePath)
	}
}

func TestLoadAgent_BadDuration(t *testing.T) {
	t.Setenv("GESTURE_COOLDOWN", "soon")
	if _, err := LoadAgent(); err == nil {
		t.Error("expected parse error for invalid duration")
	}
}

func TestRegistryURL(t *testing.T) {
	t.Setenv("REGISTRY_URL", "")
	if got := RegistryURL("http://fallback"); got != "http://fallback" {
		t.Errorf("fallback: got %q", got)
	}

	t.Setenv("REGISTRY_URL", "http://hub:8080/")
	if got := RegistryURL("http://fallback"); got != "http://hub:8080" {
		t.Errorf("env: got %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got := ExpandHome("~/x/y.json")
	if !strings.HasPrefix(got, home) {
		t.Errorf("ExpandHome: got %q, want prefix %q", got, home)
	}
	if ExpandHome("/abs/path") != "/abs/path" {
		t.Error("absolute paths should be untouched")
	}
}
