// Package config loads the service configuration from a YAML file, an
// optional .env file and GEOKNN_* environment variables, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/geoknn"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "GEOKNN_"

// Config is the service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Index  IndexConfig  `yaml:"index"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Mode            string        `yaml:"mode"` // gin mode: debug, release or test
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// IndexConfig maps onto geoknn options.
type IndexConfig struct {
	ChunkSize            int     `yaml:"chunk_size"`
	MemoryLimitBytes     int64   `yaml:"memory_limit_bytes"`
	MaxConcurrentQueries int64   `yaml:"max_concurrent_queries"`
	InsertsPerSec        float64 `yaml:"inserts_per_sec"`
	InsertBurst          int     `yaml:"insert_burst"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Index: IndexConfig{
			ChunkSize: 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadEnv loads variables from the given dotenv files into the process
// environment. Missing files are skipped and variables that are already set
// win.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	parse := func(key string, fn func(string) error) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			if err := fn(v); err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err))
			}
		}
	}

	str("ADDR", &cfg.Server.Addr)
	str("MODE", &cfg.Server.Mode)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	parse("READ_TIMEOUT", func(v string) (err error) {
		cfg.Server.ReadTimeout, err = time.ParseDuration(v)
		return err
	})
	parse("WRITE_TIMEOUT", func(v string) (err error) {
		cfg.Server.WriteTimeout, err = time.ParseDuration(v)
		return err
	})
	parse("SHUTDOWN_TIMEOUT", func(v string) (err error) {
		cfg.Server.ShutdownTimeout, err = time.ParseDuration(v)
		return err
	})
	parse("CHUNK_SIZE", func(v string) (err error) {
		cfg.Index.ChunkSize, err = strconv.Atoi(v)
		return err
	})
	parse("MEMORY_LIMIT_BYTES", func(v string) (err error) {
		cfg.Index.MemoryLimitBytes, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	parse("MAX_CONCURRENT_QUERIES", func(v string) (err error) {
		cfg.Index.MaxConcurrentQueries, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	parse("INSERTS_PER_SEC", func(v string) (err error) {
		cfg.Index.InsertsPerSec, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("INSERT_BURST", func(v string) (err error) {
		cfg.Index.InsertBurst, err = strconv.Atoi(v)
		return err
	})

	return errors.Join(errs...)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("config: server.addr must not be empty"))
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("config: unknown server.mode %q", c.Server.Mode))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: server.read_timeout must not be negative, got %s", c.Server.ReadTimeout))
	}
	if c.Server.WriteTimeout < 0 {
		errs = append(errs, fmt.Errorf("config: server.write_timeout must not be negative, got %s", c.Server.WriteTimeout))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config: server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout))
	}
	if c.Index.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("config: index.chunk_size must not be negative, got %d", c.Index.ChunkSize))
	}
	if c.Index.MemoryLimitBytes < 0 {
		errs = append(errs, fmt.Errorf("config: index.memory_limit_bytes must not be negative, got %d", c.Index.MemoryLimitBytes))
	}
	if c.Index.InsertsPerSec < 0 {
		errs = append(errs, fmt.Errorf("config: index.inserts_per_sec must not be negative, got %g", c.Index.InsertsPerSec))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log.format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Options translates the index section into geoknn options.
func (c IndexConfig) Options() []geoknn.Option {
	opts := []geoknn.Option{
		geoknn.WithMemoryLimit(c.MemoryLimitBytes),
		geoknn.WithMaxConcurrentQueries(c.MaxConcurrentQueries),
		geoknn.WithInsertRate(c.InsertsPerSec, c.InsertBurst),
	}
	if c.ChunkSize > 0 {
		opts = append(opts, geoknn.WithChunkSize(c.ChunkSize))
	}
	return opts
}

// SlogLevel parses the configured level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}

// Logger builds the configured logger writing to stderr.
func (c LogConfig) Logger() *geoknn.Logger {
	level, err := c.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	if strings.EqualFold(c.Format, "text") {
		return geoknn.NewTextLogger(level)
	}
	return geoknn.NewJSONLogger(level)
}
