package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/ssargent/intblob/pkg/codec"
)

const (
	BackendFile   = "file"
	BackendPebble = "pebble"

	DefaultBlobName = "data.dat"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the intblob configuration
type Config struct {
	DataDir    string  `yaml:"data_dir"`
	Backend    string  `yaml:"backend"`
	BlobName   string  `yaml:"blob_name"`
	BufferSize int     `yaml:"buffer_size"`
	Record     Record  `yaml:"record"`
	Logging    Logging `yaml:"logging"`
	Metrics    Metrics `yaml:"metrics"`
}

// Record fixes the record layout. Writer and reader must use the same values.
type Record struct {
	Width     int    `yaml:"width"`
	ByteOrder string `yaml:"byte_order"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// Metrics contains metrics export configuration
type Metrics struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir:    "./data",
		Backend:    BackendFile,
		BlobName:   DefaultBlobName,
		BufferSize: 64 * 1024,
		Record: Record{
			Width:     codec.DefaultWidth,
			ByteOrder: "little",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.Newf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, errors.Wrap(err, "invalid config path")
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// Validate checks that the configuration can be used
func (c *Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case BackendFile, BackendPebble:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown backend %q", c.Backend)
	}

	if c.DataDir == "" {
		return errors.Wrap(ErrInvalidConfig, "data_dir is required")
	}
	if c.BlobName == "" {
		return errors.Wrap(ErrInvalidConfig, "blob_name is required")
	}
	if c.BufferSize < 0 {
		return errors.Wrapf(ErrInvalidConfig, "buffer_size %d is negative", c.BufferSize)
	}

	if _, err := c.Codec(); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "record: %v", err)
	}

	return nil
}

// Codec builds the record codec described by the Record section
func (c *Config) Codec() (*codec.IntCodec, error) {
	order, err := codec.ParseByteOrder(c.Record.ByteOrder)
	if err != nil {
		return nil, err
	}
	return codec.NewIntCodec(c.Record.Width, order)
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./intblob.yaml"
	}

	// For Linux/macOS, use ~/.config/intblob/config.yaml
	configDir := filepath.Join(homeDir, ".config", "intblob")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
