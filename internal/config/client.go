package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ClientConfig is the CLI configuration file.
type ClientConfig struct {
	ServerURL    string             `toml:"server_url"`
	Offline      OfflineConfig      `toml:"offline"`
	Invalidation InvalidationConfig `toml:"invalidation"`
	AMQP         ClientAMQPConfig   `toml:"amqp"`
}

type OfflineConfig struct {
	Enabled   bool   `toml:"enabled"`
	Backend   string `toml:"backend"`
	DBPath    string `toml:"db_path,omitempty"`
	CacheName string `toml:"cache_name"`
}

type InvalidationConfig struct {
	// Scheme is "canonical" or "legacy".
	Scheme string `toml:"scheme"`
}

// ClientAMQPConfig locates the push exchange. Queue is the routing key
// prefix; each consumer gets its own private queue.
type ClientAMQPConfig struct {
	URL      string `toml:"url,omitempty"`
	Exchange string `toml:"exchange,omitempty"`
	Queue    string `toml:"queue,omitempty"`
}

// DefaultClientConfig returns the configuration used when no file exists.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ServerURL: "http://localhost:8081",
		Offline: OfflineConfig{
			Enabled:   true,
			Backend:   "sqlite",
			DBPath:    filepath.Join(ClientDir(), "offline.db"),
			CacheName: "gestore-binder-v1",
		},
		Invalidation: InvalidationConfig{Scheme: "canonical"},
		AMQP: ClientAMQPConfig{
			Exchange: "gestorebinder",
			Queue:    "push_notifications",
		},
	}
}

// ClientDir returns the XDG config directory of the CLI.
func ClientDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gestorebinder")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gestorebinder")
}

// ClientPath returns the full path to the config file.
func ClientPath() string {
	return filepath.Join(ClientDir(), "config.toml")
}

// LoadClient reads path, returning defaults when it does not exist.
func LoadClient(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, cfg.Validate()
}

// SaveClient writes cfg to path.
func SaveClient(path string, cfg ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Validate checks the values the CLI cannot work without.
func (c ClientConfig) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server_url %q: must be an absolute http(s) URL", c.ServerURL)
	}
	switch c.Offline.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("invalid offline.backend %q: must be memory or sqlite", c.Offline.Backend)
	}
	if c.Offline.Backend == "sqlite" && c.Offline.DBPath == "" {
		return fmt.Errorf("offline.db_path is required for the sqlite backend")
	}
	switch c.Invalidation.Scheme {
	case "", "canonical", "legacy":
	default:
		return fmt.Errorf("invalid invalidation.scheme %q: must be canonical or legacy", c.Invalidation.Scheme)
	}
	return nil
}

// SessionPath is where the CLI keeps the session cookies between runs.
func SessionPath() string {
	return filepath.Join(ClientDir(), "session.toml")
}
