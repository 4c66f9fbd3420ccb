// Package config loads image-nodes settings from an optional YAML file
// overlaid with IMAGE_NODES_* environment variables.
package config

import (
	"errors"
	"fmt"
	"image/png"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variable names; "__" separates
// nested keys, so IMAGE_NODES_LOG__LEVEL sets log.level.
const EnvPrefix = "IMAGE_NODES_"

// DefaultOutputDir is where relative export paths land.
const DefaultOutputDir = "./output"

// LogConfig controls the process logger.
type LogConfig struct {
	Level string `koanf:"level"` // debug|info|warn|error
	JSON  bool   `koanf:"json"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Port int `koanf:"port"` // 0 disables /metrics
}

// Config is the merged process configuration.
type Config struct {
	OutputDir       string `koanf:"output_dir"`
	DisableMetadata bool   `koanf:"disable_metadata"`
	Compression     string `koanf:"compression"` // default|none|fast|best

	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// Load merges the YAML file at path (skipped when empty or missing) with
// environment variables, applies defaults and validates the result.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, "__", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// applyDefaults fills unset keys. The flat IMAGE_NODES_LOG_LEVEL and
// IMAGE_NODES_LOG_JSON variables read by logging.InitFromEnv stand in for
// log.level and log.json when neither the file nor LOG__* set them.
func applyDefaults(c *Config) {
	if c.Log.Level == "" {
		c.Log.Level = strings.TrimSpace(os.Getenv(EnvPrefix + "LOG_LEVEL"))
	}
	if !c.Log.JSON {
		c.Log.JSON, _ = strconv.ParseBool(strings.TrimSpace(os.Getenv(EnvPrefix + "LOG_JSON")))
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Compression == "" {
		c.Compression = "default"
	}
}

// Validate reports settings that cannot be applied.
func (c Config) Validate() error {
	if _, err := c.CompressionLevel(); err != nil {
		return err
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port %d out of range", c.Metrics.Port)
	}
	return nil
}

// CompressionLevel maps the compression setting onto image/png.
func (c Config) CompressionLevel() (png.CompressionLevel, error) {
	switch strings.ToLower(c.Compression) {
	case "", "default":
		return png.DefaultCompression, nil
	case "none":
		return png.NoCompression, nil
	case "fast":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	}
	return 0, fmt.Errorf("compression %q not supported (want default|none|fast|best)", c.Compression)
}
