package main

import (
	"os"

	"github.com/moby/ifset/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// loadConfig loads the configuration file named by --config and applies the
// flags that were set explicitly on top of it.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	path, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	var ferr error
	flags.Visit(func(f *pflag.Flag) {
		if ferr != nil {
			return
		}
		switch f.Name {
		case "log-level":
			cfg.Logging.Level, ferr = flags.GetString(f.Name)
		case "socket":
			cfg.Control.Socket, ferr = flags.GetString(f.Name)
		case "listen-metrics-addr":
			cfg.Metrics.Addr, ferr = flags.GetString(f.Name)
		case "watcher":
			cfg.Watcher.Mode, ferr = flags.GetString(f.Name)
		case "poll-interval":
			cfg.Watcher.PollInterval, ferr = flags.GetDuration(f.Name)
		case "max-entries":
			cfg.Registry.MaxEntries, ferr = flags.GetInt(f.Name)
		case "buckets":
			cfg.Registry.Buckets, ferr = flags.GetInt(f.Name)
		case "table-file":
			cfg.Registry.TableFile, ferr = flags.GetString(f.Name)
		}
	})
	if ferr != nil {
		return nil, ferr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg config.LoggingConfig) error {
	logrus.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}
