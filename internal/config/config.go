package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/iancoleman/strcase"
	jsoniter "github.com/json-iterator/go"
	"github.com/mcncl/jsoncodec/internal/batch"
	"github.com/mcncl/jsoncodec/internal/codec"
	"github.com/mcncl/jsoncodec/internal/errors"
	"github.com/mcncl/jsoncodec/internal/logging"
	"github.com/mcncl/jsoncodec/internal/natsbridge"
	"github.com/mcncl/jsoncodec/internal/wire"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for jsoncodec
type Config struct {
	Codec   CodecConfig   `yaml:"codec"`
	Logging LoggingConfig `yaml:"logging"`
	Batch   BatchConfig   `yaml:"batch"`
	NATS    NATSConfig    `yaml:"nats"`
}

// CodecConfig holds the transcoding options
type CodecConfig struct {
	EncodeTypeInfo bool   `yaml:"encodeTypeInfo"`
	DecodeTypeInfo bool   `yaml:"decodeTypeInfo"`
	RootArrayField string `yaml:"rootArrayField"`
}

// LoggingConfig controls the logger
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BatchConfig controls how message groups are processed
type BatchConfig struct {
	Workers int    `yaml:"workers"`
	Policy  string `yaml:"policy"`
}

// NATSConfig controls the serve command
type NATSConfig struct {
	URL           string `yaml:"url"`
	Subject       string `yaml:"subject"`
	Queue         string `yaml:"queue"`
	OutputSubject string `yaml:"outputSubject"`
	Mode          string `yaml:"mode"`
	Wire          string `yaml:"wire"`
}

// Overrides are command line values applied on top of a loaded config.
// Nil pointers and empty strings leave the config untouched.
type Overrides struct {
	EncodeTypeInfo *bool
	DecodeTypeInfo *bool
	RootArrayField *string
	LogLevel       string
	Debug          bool
}

var configNames = []string{
	".jsoncodec.yml", ".jsoncodec.yaml", ".jsoncodec.toml", ".jsoncodec.json",
	"jsoncodec.yml", "jsoncodec.yaml", "jsoncodec.toml", "jsoncodec.json",
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Codec: CodecConfig{
			EncodeTypeInfo: false,
			DecodeTypeInfo: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
		Batch: BatchConfig{
			Workers: 4,
			Policy:  string(batch.PolicyAbort),
		},
		NATS: NATSConfig{
			URL:  "nats://127.0.0.1:4222",
			Mode: string(natsbridge.ModeDecode),
			Wire: wire.FormatMsgpack,
		},
	}
}

// Settings returns the codec settings
func (c CodecConfig) Settings() codec.Settings {
	return codec.Settings{
		EncodeTypeInfo: c.EncodeTypeInfo,
		DecodeTypeInfo: c.DecodeTypeInfo,
		RootArrayField: c.RootArrayField,
	}
}

// LoadConfig loads configuration from a YAML, TOML or JSON file. JSON files
// may contain comments and trailing commas. Keys may be written in camel,
// snake or kebab case.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	raw := map[string]interface{}{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".json", ".jsonc":
		err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(jsonc.ToJSON(data), &raw)
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unsupported config file extension %q", ext), errors.ErrInvalidConfig)
	}
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}

	// Start with defaults
	cfg := NewConfig()
	normalized, err := yaml.Marshal(normalizeKeys(raw))
	if err != nil {
		return nil, errors.NewConfigError("failed to normalize config keys", err)
	}
	if err := yaml.Unmarshal(normalized, cfg); err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("invalid config file %s", path), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks enum values and bounds
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return errors.NewConfigError(fmt.Sprintf("unknown logging format %q (want console or json)", c.Logging.Format), errors.ErrInvalidConfig)
	}
	if c.Batch.Workers < 1 {
		return errors.NewConfigError(fmt.Sprintf("batch.workers must be at least 1, got %d", c.Batch.Workers), errors.ErrInvalidConfig)
	}
	if _, err := batch.ParsePolicy(c.Batch.Policy); err != nil {
		return err
	}
	if _, err := natsbridge.ParseMode(c.NATS.Mode); err != nil {
		return err
	}
	if _, err := wire.Lookup(c.NATS.Wire); err != nil {
		return err
	}
	return nil
}

// ApplyOverrides applies command line values
func (c *Config) ApplyOverrides(o Overrides) {
	if o.EncodeTypeInfo != nil {
		c.Codec.EncodeTypeInfo = *o.EncodeTypeInfo
	}
	if o.DecodeTypeInfo != nil {
		c.Codec.DecodeTypeInfo = *o.DecodeTypeInfo
	}
	if o.RootArrayField != nil {
		c.Codec.RootArrayField = *o.RootArrayField
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.Debug {
		c.Logging.Level = "debug"
	}
}

// LoadConfigWithCLI loads the config file at configPath, or the nearest one
// found from the working directory when configPath is empty, and applies
// the command line overrides.
func LoadConfigWithCLI(configPath string, overrides Overrides) (*Config, error) {
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg := NewConfig()
	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	cfg.ApplyOverrides(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func normalizeKeys(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, val := range x {
			out[strcase.ToLowerCamel(k)] = normalizeKeys(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, val := range x {
			out[strcase.ToLowerCamel(fmt.Sprint(k))] = normalizeKeys(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, val := range x {
			out[i] = normalizeKeys(val)
		}
		return out
	default:
		return v
	}
}
