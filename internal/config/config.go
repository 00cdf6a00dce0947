// Package config stores the application settings and saved configuration
// profiles as JSON in the user's config directory.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PixPMusic/mixerconf/internal/device"
	"github.com/google/uuid"
)

const (
	DefaultPollInterval = time.Second
	DefaultHTTPAddr     = "127.0.0.1:8710"
)

// ErrProfileNotFound is returned when no profile matches an id or name
var ErrProfileNotFound = errors.New("profile not found")

// Duration is a time.Duration stored as a string such as "1s"
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// SerialConfig selects a serial MIDI line instead of the OS MIDI driver
type SerialConfig struct {
	Device string `json:"device,omitempty"`
	Baud   int    `json:"baud,omitempty"`
}

// Profile is a named configuration record saved for later use
type Profile struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Created time.Time      `json:"created"`
	Config  *device.Config `json:"config"`
}

// NewProfile creates a profile with a generated ID
func NewProfile(name string, cfg *device.Config) Profile {
	return Profile{
		ID:      uuid.New().String(),
		Name:    name,
		Created: time.Now().UTC().Truncate(time.Second),
		Config:  cfg.Clone(),
	}
}

// Config holds application configuration
type Config struct {
	InPort       string       `json:"in_port,omitempty"`  // preferred input port name
	OutPort      string       `json:"out_port,omitempty"` // preferred output port name
	PollInterval Duration     `json:"poll_interval"`
	LogLevel     string       `json:"log_level,omitempty"`
	HTTPAddr     string       `json:"http_addr"`
	Serial       SerialConfig `json:"serial"`
	Profiles     []Profile    `json:"profiles"`
}

// Default returns the settings used when no file exists
func Default() *Config {
	return &Config{
		PollInterval: Duration{DefaultPollInterval},
		LogLevel:     "info",
		HTTPAddr:     DefaultHTTPAddr,
		Profiles:     []Profile{},
	}
}

// configDir returns the platform-appropriate config directory
func configDir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, "mixerconf"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from the default path
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads the config at path, returning defaults if not found. An
// empty path means ConfigPath.
func LoadFrom(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// Ensure unset values fall back
	if cfg.PollInterval.Duration <= 0 {
		cfg.PollInterval.Duration = DefaultPollInterval
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Profiles == nil {
		cfg.Profiles = []Profile{}
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	return c.SaveTo("")
}

// SaveTo writes the config to path; empty means ConfigPath
func (c *Config) SaveTo(path string) error {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// AddProfile saves cfg under name. An existing profile with the same name is
// overwritten and keeps its ID.
func (c *Config) AddProfile(name string, cfg *device.Config) Profile {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			c.Profiles[i].Config = cfg.Clone()
			return c.Profiles[i]
		}
	}
	p := NewProfile(name, cfg)
	c.Profiles = append(c.Profiles, p)
	return p
}

// FindProfile returns the profile whose ID or name matches. IDs may be
// abbreviated to a unique prefix.
func (c *Config) FindProfile(idOrName string) (*Profile, error) {
	i, err := c.profileIndex(idOrName)
	if err != nil {
		return nil, err
	}
	return &c.Profiles[i], nil
}

// RemoveProfile deletes the profile matching idOrName
func (c *Config) RemoveProfile(idOrName string) error {
	i, err := c.profileIndex(idOrName)
	if err != nil {
		return err
	}
	c.Profiles = append(c.Profiles[:i], c.Profiles[i+1:]...)
	return nil
}

func (c *Config) profileIndex(key string) (int, error) {
	if key == "" {
		return -1, ErrProfileNotFound
	}
	for i, p := range c.Profiles {
		if p.ID == key || p.Name == key {
			return i, nil
		}
	}

	match := -1
	for i, p := range c.Profiles {
		if strings.HasPrefix(p.ID, key) {
			if match >= 0 {
				return -1, fmt.Errorf("profile id %q is ambiguous", key)
			}
			match = i
		}
	}
	if match < 0 {
		return -1, fmt.Errorf("%w: %s", ErrProfileNotFound, key)
	}
	return match, nil
}
