// Package config provides persistent configuration for the prayer-widget CLI.
//
// Configuration is stored as JSON at ~/.config/prayer-widget/config.json
// (XDG-compliant). The merge priority is:
// CLI flags > PRAYER_WIDGET_* environment > config file > defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/prayer-widget/internal/prayer"
)

const (
	configDirName  = "prayer-widget"
	configFileName = "config.json"

	// EnvPrefix prefixes the environment variable for each key,
	// e.g. PRAYER_WIDGET_CITY.
	EnvPrefix = "PRAYER_WIDGET_"

	// MinInterval is the shortest accepted evaluation interval.
	MinInterval = time.Second
)

// ValidKeys lists all config keys that can be set via `config set`.
var ValidKeys = []string{
	"city", "country",
	"latitude", "longitude",
	"address",
	"method", "school",
	"time_format",
	"prayers",
	"cache_dir",
	"interval",
	"listen_addr",
	"mqtt_broker", "mqtt_topic",
	"state_backend", "state_path", "redis_addr", "redis_key",
	"log_level",
}

// Config holds all user-configurable settings.
// Zero values mean "not set" (use defaults or auto-detect).
type Config struct {
	City       string  `json:"city,omitempty"`
	Country    string  `json:"country,omitempty"`
	Latitude   float64 `json:"latitude,omitempty"`
	Longitude  float64 `json:"longitude,omitempty"`
	Method     *int    `json:"method,omitempty"`      // pointer so we can distinguish "not set" from 0
	School     *int    `json:"school,omitempty"`      // pointer so we can distinguish "not set" from 0
	TimeFormat string  `json:"time_format,omitempty"` // "12h" or "24h"
	Prayers    string  `json:"prayers,omitempty"`     // comma-separated list
	CacheDir   string  `json:"cache_dir,omitempty"`
	Address    string  `json:"address,omitempty"` // free-form, e.g. "Regent's Park, London"

	// Long-running modes (watch, serve).
	Interval     string `json:"interval,omitempty"` // Go duration, e.g. "30s"
	ListenAddr   string `json:"listen_addr,omitempty"`
	MQTTBroker   string `json:"mqtt_broker,omitempty"`
	MQTTTopic    string `json:"mqtt_topic,omitempty"`
	StateBackend string `json:"state_backend,omitempty"` // "file" or "redis"
	StatePath    string `json:"state_path,omitempty"`
	RedisAddr    string `json:"redis_addr,omitempty"`
	RedisKey     string `json:"redis_key,omitempty"` // default "prayer-widget:state"
	LogLevel     string `json:"log_level,omitempty"`
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	method := -1
	school := -1
	return Config{
		Method:       &method,
		School:       &school,
		TimeFormat:   "24h",
		Interval:     "60s",
		ListenAddr:   "127.0.0.1:8765",
		MQTTTopic:    "prayer-widget/reading",
		StateBackend: "file",
	}
}

// Dir returns the config directory path.
// It respects $XDG_CONFIG_HOME if set, otherwise uses ~/.config/.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file from disk.
// If the file does not exist, it returns an empty Config (not an error).
// If the file exists but is invalid JSON, it returns an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	return LoadFrom(path)
}

// LoadFrom reads the config from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Config{}
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the config to disk, creating the directory if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return c.SaveTo(path)
}

// SaveTo writes the config to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Reset deletes the config file.
func Reset() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return ResetAt(path)
}

// ResetAt deletes the config file at a specific path.
func ResetAt(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// Set sets a config key to the given value.
// It validates the key name and parses the value into the correct type.
func (c *Config) Set(key, value string) error {
	switch key {
	case "city":
		c.City = value
	case "country":
		c.Country = value
	case "latitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q: must be a number", value)
		}
		if v < -90 || v > 90 {
			return fmt.Errorf("invalid latitude %q: must be between -90 and 90", value)
		}
		c.Latitude = v
	case "longitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q: must be a number", value)
		}
		if v < -180 || v > 180 {
			return fmt.Errorf("invalid longitude %q: must be between -180 and 180", value)
		}
		c.Longitude = v
	case "method":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid method %q: must be an integer", value)
		}
		if v < 0 || v > 23 {
			return fmt.Errorf("invalid method %q: must be between 0 and 23", value)
		}
		c.Method = &v
	case "school":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid school %q: must be an integer", value)
		}
		if v != 0 && v != 1 {
			return fmt.Errorf("invalid school %q: must be 0 (Shafi) or 1 (Hanafi)", value)
		}
		c.School = &v
	case "time_format":
		if value != "12h" && value != "24h" {
			return fmt.Errorf("invalid time_format %q: must be \"12h\" or \"24h\"", value)
		}
		c.TimeFormat = value
	case "prayers":
		if err := prayer.ValidateNames(SplitPrayers(value)); err != nil {
			return fmt.Errorf("invalid prayers list %q: %w", value, err)
		}
		c.Prayers = value
	case "cache_dir":
		c.CacheDir = value
	case "address":
		c.Address = strings.TrimSpace(value)
	case "interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid interval %q: must be a duration such as \"30s\"", value)
		}
		if d < MinInterval {
			return fmt.Errorf("invalid interval %q: must be at least %s", value, MinInterval)
		}
		c.Interval = value
	case "listen_addr":
		if _, _, err := net.SplitHostPort(value); err != nil {
			return fmt.Errorf("invalid listen_addr %q: must be host:port", value)
		}
		c.ListenAddr = value
	case "mqtt_broker":
		if value != "" && !strings.Contains(value, "://") {
			return fmt.Errorf("invalid mqtt_broker %q: must be a URL such as tcp://localhost:1883", value)
		}
		c.MQTTBroker = value
	case "mqtt_topic":
		if strings.ContainsAny(value, "#+") {
			return fmt.Errorf("invalid mqtt_topic %q: wildcards are not allowed", value)
		}
		c.MQTTTopic = value
	case "state_backend":
		if value != "file" && value != "redis" {
			return fmt.Errorf("invalid state_backend %q: must be \"file\" or \"redis\"", value)
		}
		c.StateBackend = value
	case "state_path":
		c.StatePath = value
	case "redis_addr":
		c.RedisAddr = value
	case "redis_key":
		if strings.ContainsAny(value, " \t\n") {
			return fmt.Errorf("invalid redis_key %q: must not contain whitespace", value)
		}
		c.RedisKey = value
	case "log_level":
		if _, err := zerolog.ParseLevel(strings.ToLower(value)); err != nil || value == "" {
			return fmt.Errorf("invalid log_level %q: must be one of trace, debug, info, warn, error", value)
		}
		c.LogLevel = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}

	return nil
}

// Get returns the string value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "city":
		return c.City, nil
	case "country":
		return c.Country, nil
	case "latitude":
		if c.Latitude == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.Latitude, 'f', -1, 64), nil
	case "longitude":
		if c.Longitude == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.Longitude, 'f', -1, 64), nil
	case "method":
		if c.Method == nil {
			return "", nil
		}
		return strconv.Itoa(*c.Method), nil
	case "school":
		if c.School == nil {
			return "", nil
		}
		return strconv.Itoa(*c.School), nil
	case "time_format":
		return c.TimeFormat, nil
	case "prayers":
		return c.Prayers, nil
	case "cache_dir":
		return c.CacheDir, nil
	case "address":
		return c.Address, nil
	case "interval":
		return c.Interval, nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "mqtt_broker":
		return c.MQTTBroker, nil
	case "mqtt_topic":
		return c.MQTTTopic, nil
	case "state_backend":
		return c.StateBackend, nil
	case "state_path":
		return c.StatePath, nil
	case "redis_addr":
		return c.RedisAddr, nil
	case "redis_key":
		return c.RedisKey, nil
	case "log_level":
		return c.LogLevel, nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// ApplyEnv overlays PRAYER_WIDGET_* variables onto c. Values from the given
// dotenv files are used only for variables the process environment does not
// set; missing files are skipped.
func (c *Config) ApplyEnv(dotenvFiles ...string) error {
	dotenv := map[string]string{}
	for _, f := range dotenvFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		vars, err := godotenv.Read(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f, err)
		}
		for k, v := range vars {
			if _, ok := dotenv[k]; !ok {
				dotenv[k] = v
			}
		}
	}

	for _, key := range ValidKeys {
		name := EnvName(key)
		value, ok := os.LookupEnv(name)
		if !ok {
			value, ok = dotenv[name]
		}
		if !ok {
			continue
		}
		if err := c.Set(key, value); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// SplitPrayers splits a comma-separated prayers value into trimmed names.
func SplitPrayers(value string) []string {
	var names []string
	for _, n := range strings.Split(value, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// IntervalOrDefault parses the interval, falling back to def when unset.
func (c *Config) IntervalOrDefault(def time.Duration) time.Duration {
	if c.Interval == "" {
		return def
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d < MinInterval {
		return def
	}
	return d
}

// MethodOrDefault returns the method value, falling back to the given default.
func (c *Config) MethodOrDefault(def int) int {
	if c.Method != nil {
		return *c.Method
	}
	return def
}

// SchoolOrDefault returns the school value, falling back to the given default.
func (c *Config) SchoolOrDefault(def int) int {
	if c.School != nil {
		return *c.School
	}
	return def
}
