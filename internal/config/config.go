package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Assistant     AssistantConfig `toml:"assistant"`
	Calendar      CalendarConfig  `toml:"calendar"`
	Server        ServerConfig    `toml:"server"`
	Sessions      SessionsConfig  `toml:"sessions"`
	Notifications NotifyConfig    `toml:"notifications"`
	Log           LogConfig       `toml:"log"`
}

type AssistantConfig struct {
	DefaultTitle    string `toml:"default_title"`
	DurationMinutes int    `toml:"duration_minutes"`
	Timezone        string `toml:"timezone"` // IANA name, empty = local
}

type CalendarConfig struct {
	Source      string      `toml:"source"` // "mock" | "graph" | ICS URL | file path
	WorkStart   string      `toml:"work_start"`
	WorkEnd     string      `toml:"work_end"`
	WorkDays    []int       `toml:"work_days"`
	SlotMinutes int         `toml:"slot_minutes"`
	History     bool        `toml:"history"`
	Graph       GraphConfig `toml:"graph"`
}

type GraphConfig struct {
	ClientID string `toml:"client_id"`
	TenantID string `toml:"tenant_id"`
}

type ServerConfig struct {
	Listen         string   `toml:"listen"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

type SessionsConfig struct {
	Store       string `toml:"store"` // "memory" or "redis"
	MaxSessions int    `toml:"max_sessions"`
	RedisAddr   string `toml:"redis_addr"`
	RedisDB     int    `toml:"redis_db"`
	TTLMinutes  int    `toml:"ttl_minutes"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

func DefaultConfig() Config {
	return Config{
		Assistant: AssistantConfig{
			DefaultTitle:    "Appointment",
			DurationMinutes: 60,
		},
		Calendar: CalendarConfig{
			Source:      "mock",
			WorkStart:   "09:00",
			WorkEnd:     "17:00",
			WorkDays:    []int{1, 2, 3, 4, 5},
			SlotMinutes: 60,
			History:     true,
			Graph: GraphConfig{
				TenantID: "common",
			},
		},
		Server: ServerConfig{
			Listen:         "127.0.0.1:8000",
			AllowedOrigins: []string{"*"},
		},
		Sessions: SessionsConfig{
			Store:       "memory",
			MaxSessions: 1000,
			TTLMinutes:  24 * 60,
		},
		Notifications: NotifyConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Location resolves the assistant timezone; empty means time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Assistant.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Assistant.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Assistant.Timezone, err)
	}
	return loc, nil
}

// SessionTTL is the idle lifetime of a stored session.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLMinutes) * time.Minute
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "bookr"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// Load reads ~/.config/bookr/config.toml. A missing file yields the defaults.
// Environment overrides apply either way.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if len(data) > 0 {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BOOKR_CALENDAR_SOURCE"); v != "" {
		cfg.Calendar.Source = v
	}
	if v := os.Getenv("MSGRAPH_CLIENT_ID"); v != "" {
		cfg.Calendar.Graph.ClientID = v
	}
	if v := os.Getenv("MSGRAPH_TENANT_ID"); v != "" {
		cfg.Calendar.Graph.TenantID = v
	}
	if v := os.Getenv("BOOKR_REDIS_ADDR"); v != "" {
		cfg.Sessions.RedisAddr = v
		cfg.Sessions.Store = "redis"
	}
	if v := os.Getenv("BOOKR_LISTEN_ADDR"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("BOOKR_MAX_SESSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Sessions.MaxSessions = n
		}
	}
	if v := os.Getenv("BOOKR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// WriteDefault creates the config file with default values if it does not
// exist yet, so `bookr config` has something to open.
func WriteDefault() (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	out, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return path, nil
}
