// Package config provides configuration helpers for go-gesture-home commands.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Defaults shared by the hub and the agent.
const (
	DefaultHubPort     = "8080"
	DefaultRegistryURL = "http://localhost:8080"
)

// HubConfig configures the gesture-hub daemon (registry + HTTP API).
type HubConfig struct {
	Port      string `env:"GESTURE_PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	StaticDir string `env:"GESTURE_STATIC_DIR" envDefault:"./web"`

	// Initial settings, overridable later through /api/gesture/settings.
	Enabled         bool    `env:"GESTURE_ENABLED" envDefault:"true"`
	Sensitivity     float64 `env:"GESTURE_SENSITIVITY" envDefault:"0.7"`
	DetectionRange  float64 `env:"GESTURE_DETECTION_RANGE" envDefault:"0.8"`
	ResponseDelayMs int     `env:"GESTURE_RESPONSE_DELAY_MS" envDefault:"0"`
}

// AgentConfig configures the gesture-agent (camera + controller + dispatcher).
type AgentConfig struct {
	RegistryURL     string        `env:"REGISTRY_URL" envDefault:"http://localhost:8080"`
	RegistryTimeout time.Duration `env:"REGISTRY_TIMEOUT" envDefault:"3s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`

	CameraDevice int    `env:"CAMERA_DEVICE" envDefault:"0"`
	ModelPath    string `env:"HAND_MODEL_PATH" envDefault:"models/hand_landmark.onnx"`
	Mock         bool   `env:"GESTURE_MOCK" envDefault:"false"`

	// StorePath is where unconfirmed device states survive restarts.
	// A .db or .sqlite suffix selects the SQLite store.
	StorePath string `env:"GESTURE_STORE_PATH" envDefault:"~/.gesture-home/mirror.json"`

	Sensitivity     float64       `env:"GESTURE_SENSITIVITY" envDefault:"0.7"`
	ResponseDelay   time.Duration `env:"GESTURE_RESPONSE_DELAY" envDefault:"0s"`
	Cooldown        time.Duration `env:"GESTURE_COOLDOWN" envDefault:"1500ms"`
	SubscribePushes bool          `env:"GESTURE_SUBSCRIBE" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadHub parses a HubConfig from the environment.
func LoadHub() (HubConfig, error) {
	var cfg HubConfig
	err := ParseEnv(&cfg)
	return cfg, err
}

// LoadAgent parses an AgentConfig from the environment and expands the store path.
func LoadAgent() (AgentConfig, error) {
	var cfg AgentConfig
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.StorePath = ExpandHome(cfg.StorePath)
	return cfg, nil
}

// RegistryURL returns the registry base URL from REGISTRY_URL.
// Falls back to the provided default if not set.
func RegistryURL(defaultURL string) string {
	if u := os.Getenv("REGISTRY_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return defaultURL
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + strings.TrimPrefix(path, "~")
}
