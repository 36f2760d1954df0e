package orderlens

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/hashicorp/go-multierror"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"

	CacheBackendMemory = "memory"
	CacheBackendSQL    = "sql"
)

// Duration is a time.Duration that reads "30s" style strings from JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("duration must be a string like \"1m\": %s", data)
		}
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

type Config struct {
	ListenAddr      string   `json:"listenAddr"`
	Driver          string   `json:"driver"`
	DSN             string   `json:"dsn"`
	MongoDatabase   string   `json:"mongoDatabase"`
	CacheBackend    string   `json:"cacheBackend"`
	CacheDSN        string   `json:"cacheDSN"`
	SweepInterval   Duration `json:"sweepInterval"`
	DisplayTimezone string   `json:"displayTimezone"`
	StrictAnalytics bool     `json:"strictAnalytics"`
	LogLevel        string   `json:"logLevel"`
}

// DefaultConfig serves an in-memory store on :8080.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		Driver:          DriverMemory,
		CacheBackend:    CacheBackendMemory,
		SweepInterval:   Duration(time.Minute),
		DisplayTimezone: DefaultDisplayTimezone,
		LogLevel:        "info",
	}
}

// LoadConfig reads path (optional) over the defaults, then applies ORDERLENS_*
// environment overrides, then validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := json.Unmarshal(content, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ORDERLENS_LISTEN_ADDR":      &c.ListenAddr,
		"ORDERLENS_DRIVER":           &c.Driver,
		"ORDERLENS_DSN":              &c.DSN,
		"ORDERLENS_MONGO_DATABASE":   &c.MongoDatabase,
		"ORDERLENS_CACHE_BACKEND":    &c.CacheBackend,
		"ORDERLENS_CACHE_DSN":        &c.CacheDSN,
		"ORDERLENS_DISPLAY_TIMEZONE": &c.DisplayTimezone,
		"ORDERLENS_LOG_LEVEL":        &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	if v, ok := lookup("ORDERLENS_SWEEP_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ORDERLENS_SWEEP_INTERVAL: %w", err)
		}
		c.SweepInterval = Duration(d)
	}
	if v, ok := lookup("ORDERLENS_STRICT_ANALYTICS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ORDERLENS_STRICT_ANALYTICS: %w", err)
		}
		c.StrictAnalytics = b
	}
	return nil
}

// Validate reports every problem in c at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.ListenAddr == "" {
		result = multierror.Append(result, fmt.Errorf("listenAddr is required"))
	}
	switch c.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.DSN == "" {
			result = multierror.Append(result, fmt.Errorf("dsn is required for driver %q", c.Driver))
		}
	case DriverMongo:
		if c.DSN == "" {
			result = multierror.Append(result, fmt.Errorf("dsn is required for driver %q", c.Driver))
		}
		if c.MongoDatabase == "" {
			result = multierror.Append(result, fmt.Errorf("mongoDatabase is required for driver %q", c.Driver))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown driver %q", c.Driver))
	}
	switch c.CacheBackend {
	case CacheBackendMemory:
	case CacheBackendSQL:
		if c.cacheDSN() == "" {
			result = multierror.Append(result, fmt.Errorf("cacheDSN is required for cache backend %q unless driver is sqlite", c.CacheBackend))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown cache backend %q", c.CacheBackend))
	}
	if c.SweepInterval < 0 {
		result = multierror.Append(result, fmt.Errorf("sweepInterval must not be negative"))
	}
	if _, err := c.Location(); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := c.Level(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// cacheDSN is the sqlite database of the sql cache backend. It defaults to the
// order database when that is sqlite too.
func (c Config) cacheDSN() string {
	if c.CacheDSN != "" {
		return c.CacheDSN
	}
	if c.Driver == DriverSQLite {
		return c.DSN
	}
	return ""
}

func (c Config) Location() (*time.Location, error) {
	if c.DisplayTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("displayTimezone: %w", err)
	}
	return loc, nil
}

func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logLevel: %w", err)
	}
	return level, nil
}
