// Package config loads settings from, in increasing precedence, flag
// defaults, a YAML file, STUDYBUDDY_* environment variables and flags set
// on the command line.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is stripped from environment variables. The rest of the name
// is split on its first underscore into section and key, so
// STUDYBUDDY_SERVER_READ_TIMEOUT sets server.read_timeout.
const EnvPrefix = "STUDYBUDDY_"

// DefaultFile is read when --config is not given and the file exists.
const DefaultFile = "studybuddy.yaml"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Sync     SyncConfig     `koanf:"sync"`
	Study    StudyConfig    `koanf:"study"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Addr         string        `koanf:"addr" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
	RateLimit    float64       `koanf:"rate_limit" validate:"gte=0"`
	RateBurst    int           `koanf:"rate_burst" validate:"gte=0"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `koanf:"dsn" validate:"required"`
}

type SyncConfig struct {
	ReposDir string        `koanf:"repos_dir" validate:"required"`
	Interval time.Duration `koanf:"interval" validate:"gte=0"` // 0 disables periodic sync
}

type StudyConfig struct {
	Timezone string `koanf:"timezone" validate:"required,timezone"`
}

// Location returns the time zone study days are counted in.
func (c StudyConfig) Location() (*time.Location, error) {
	if c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// flagKeys maps flag names to config keys. Flags not listed are ignored.
var flagKeys = map[string]string{
	"addr":          "server.addr",
	"read-timeout":  "server.read_timeout",
	"write-timeout": "server.write_timeout",
	"rate-limit":    "server.rate_limit",
	"rate-burst":    "server.rate_burst",
	"db-driver":     "database.driver",
	"db":            "database.dsn",
	"repos-dir":     "sync.repos_dir",
	"sync-interval": "sync.interval",
	"timezone":      "study.timezone",
	"log-level":     "log.level",
	"log-format":    "log.format",
}

// RegisterFlags adds every config flag, with its default, to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", DefaultFile, "path to a YAML config file")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	fs.Float64("rate-limit", 20, "requests per second allowed per client, 0 disables")
	fs.Int("rate-burst", 40, "request burst allowed per client")
	fs.String("db-driver", "sqlite", "database driver: sqlite or postgres")
	fs.String("db", "studybuddy.db", "database file (sqlite) or connection string (postgres)")
	fs.String("repos-dir", "repos", "directory git sources are cloned into")
	fs.Duration("sync-interval", 0, "how often serve re-syncs sources, 0 disables")
	fs.String("timezone", "Local", "IANA time zone that study days are counted in")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.String("log-format", "text", "log format: text or json")
}

// Load builds the configuration from the file named by --config, the
// environment and fs.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	path, err := fs.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("config flag not registered: %w", err)
	}
	if err := loadFile(k, path, fs.Changed("config")); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	err = k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// loadFile reads path into k. A missing default file is not an error.
func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok || key == "" {
		return ""
	}
	return section + "." + key
}
