package framestream

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding file configuration.
const (
	EnvMaxFrameLen          = "FRAMESTREAM_MAX_FRAME_LEN"
	EnvMaxFrames            = "FRAMESTREAM_MAX_FRAMES"
	EnvCompressionThreshold = "FRAMESTREAM_COMPRESSION_THRESHOLD"
)

type TransportConfig struct {
	MaxFrameLen int32 `toml:"max_frame_len" yaml:"max_frame_len"`
	MaxFrames   int   `toml:"max_frames" yaml:"max_frames"`
	// CompressionThreshold is the smallest frame that is snappy encoded on
	// Send. Negative disables compression.
	CompressionThreshold int `toml:"compression_threshold" yaml:"compression_threshold"`
}

func DefaultConfig() TransportConfig {
	return TransportConfig{
		MaxFrameLen:          1 << 20, // 1MB
		MaxFrames:            64,
		CompressionThreshold: -1,
	}
}

func (c TransportConfig) Validate() error {
	if c.MaxFrameLen <= 0 {
		return fmt.Errorf("max_frame_len must be positive, got %d", c.MaxFrameLen)
	}
	if c.MaxFrames <= 0 {
		return fmt.Errorf("max_frames must be positive, got %d", c.MaxFrames)
	}
	return nil
}

// LoadConfig reads a .toml or .yaml config file on top of DefaultConfig,
// then applies environment overrides. An empty path skips the file.
func LoadConfig(path string) (TransportConfig, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("cannot read config file %q: %w", path, err)
		}

		switch ext := filepath.Ext(path); ext {
		case ".toml":
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				return cfg, fmt.Errorf("invalid TOML in %s: %w", path, err)
			}
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("invalid YAML in %s: %w", path, err)
			}
		default:
			return cfg, fmt.Errorf("unsupported config format %q", ext)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadEnv loads variables from the given dotenv files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadEnv(files ...string) error {
	var found []string
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		found = append(found, f)
	}
	if len(found) == 0 {
		return nil
	}
	return godotenv.Load(found...)
}

func (c *TransportConfig) applyEnv() error {
	if v, ok := os.LookupEnv(EnvMaxFrameLen); ok {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxFrameLen, err)
		}
		c.MaxFrameLen = int32(n)
	}
	if v, ok := os.LookupEnv(EnvMaxFrames); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxFrames, err)
		}
		c.MaxFrames = n
	}
	if v, ok := os.LookupEnv(EnvCompressionThreshold); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCompressionThreshold, err)
		}
		c.CompressionThreshold = n
	}
	return nil
}
