package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/moby/ifset/device"
	"github.com/moby/ifset/registry"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// WatcherNetlink follows link changes through rtnetlink.
	WatcherNetlink = "netlink"
	// WatcherPoll lists the system interfaces periodically.
	WatcherPoll = "poll"
)

// Config is the daemon configuration.
type Config struct {
	Control  ControlConfig  `yaml:"control"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Registry RegistryConfig `yaml:"registry"`

	// Interfaces are added to the registry at start-up.
	Interfaces []string `yaml:"interfaces"`
}

// ControlConfig configures the control socket.
type ControlConfig struct {
	Socket string `yaml:"socket"`
	// Rate is the number of commands per second accepted on one
	// connection. Zero disables rate limiting.
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables it.
	Addr string `yaml:"addr"`
}

// LoggingConfig configures the daemon logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// WatcherConfig selects how device changes are observed.
type WatcherConfig struct {
	Mode         string        `yaml:"mode"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// RegistryConfig sizes the registry.
type RegistryConfig struct {
	MaxEntries int `yaml:"max_entries"`
	Buckets    int `yaml:"buckets"`
	// TableFile, if set, receives a copy of the introspection table after
	// every change.
	TableFile string `yaml:"table_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	mode := WatcherPoll
	if runtime.GOOS == "linux" {
		mode = WatcherNetlink
	}
	return &Config{
		Control: ControlConfig{
			Socket: DefaultSocket,
			Rate:   100,
			Burst:  20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Watcher: WatcherConfig{
			Mode:         mode,
			PollInterval: device.DefaultPollInterval,
		},
		Registry: RegistryConfig{
			MaxEntries: registry.DefaultMaxEntries,
			Buckets:    registry.DefaultBuckets,
		},
	}
}

// Load reads the configuration at path. An empty path yields the defaults
// with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parsing config file")
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return cfg, nil
}

// applyEnvOverrides applies IFSET_SECTION_KEY environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("IFSET_CONTROL_SOCKET"); v != "" {
		cfg.Control.Socket = v
	}
	if v := os.Getenv("IFSET_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("IFSET_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("IFSET_WATCHER_MODE"); v != "" {
		cfg.Watcher.Mode = v
	}
	if v := os.Getenv("IFSET_WATCHER_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "IFSET_WATCHER_POLL_INTERVAL")
		}
		cfg.Watcher.PollInterval = d
	}
	if v := os.Getenv("IFSET_REGISTRY_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "IFSET_REGISTRY_MAX_ENTRIES")
		}
		cfg.Registry.MaxEntries = n
	}
	if v := os.Getenv("IFSET_REGISTRY_TABLE_FILE"); v != "" {
		cfg.Registry.TableFile = v
	}
	if v := os.Getenv("IFSET_INTERFACES"); v != "" {
		cfg.Interfaces = strings.Split(v, ",")
	}
	return nil
}

// Validate checks the configuration for errors. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []string

	if c.Control.Socket == "" {
		errs = append(errs, "control.socket is required")
	}
	if c.Control.Rate < 0 {
		errs = append(errs, "control.rate must not be negative")
	}
	if c.Control.Rate > 0 && c.Control.Burst < 1 {
		errs = append(errs, "control.burst must be at least 1 when control.rate is set")
	}

	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, "logging.level: "+err.Error())
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, "logging.format must be text or json")
	}

	switch c.Watcher.Mode {
	case WatcherNetlink:
		if runtime.GOOS != "linux" {
			errs = append(errs, "watcher.mode netlink is only supported on linux")
		}
	case WatcherPoll:
		if c.Watcher.PollInterval <= 0 {
			errs = append(errs, "watcher.poll_interval must be positive")
		}
	default:
		errs = append(errs, "watcher.mode must be netlink or poll")
	}

	if c.Registry.MaxEntries < 1 {
		errs = append(errs, "registry.max_entries must be at least 1")
	}
	if b := c.Registry.Buckets; b < 1 || b&(b-1) != 0 {
		errs = append(errs, "registry.buckets must be a power of two")
	}

	for _, name := range c.Interfaces {
		if err := registry.ValidateName(name); err != nil {
			errs = append(errs, "interfaces: "+err.Error())
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
