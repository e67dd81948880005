package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/computer2mqtt/core/logger"
	"github.com/kilianp07/computer2mqtt/core/metrics"
	"github.com/kilianp07/computer2mqtt/infra/mqtt"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "computer2mqtt.yaml"

// EnvPrefix selects environment overrides, e.g. C2M_MQTT__PASSWORD.
const EnvPrefix = "C2M_"

// keyDelim separates nested koanf keys. Command keys are topic segments and
// can contain dots but never a slash.
const keyDelim = "/"

// Config is the root of the configuration file.
type Config struct {
	MQTT     mqtt.Config       `json:"mqtt"`
	Commands map[string]string `json:"commands"`
	Metrics  metrics.Config    `json:"metrics"`
}

// Load reads path, applies C2M_ environment overrides and defaults, and
// validates the result. Failures are returned as *Error.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: NotFound, Path: path, Err: err}
		}
		return nil, &Error{Kind: ParseError, Path: path, Err: err}
	}
	k := koanf.NewWithConf(koanf.Conf{Delim: keyDelim})
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, &Error{Kind: ParseError, Path: path, Err: fmt.Errorf("unsupported config format: %q", ext)}
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, &Error{Kind: ParseError, Path: path, Err: err}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, keyDelim, func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", keyDelim)
	}), nil); err != nil {
		return nil, &Error{Kind: ParseError, Path: path, Err: err}
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, &Error{Kind: ParseError, Path: path, Err: err}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Kind: Invalid, Path: path, Err: err}
	}
	return &cfg, nil
}

// SetDefaults fills every optional section.
func (c *Config) SetDefaults() {
	c.MQTT.SetDefaults()
	c.Metrics.SetDefaults()
	if c.Commands == nil {
		c.Commands = map[string]string{}
	}
}

// Validate checks value ranges. No field is mandatory.
func (c Config) Validate() error {
	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// CommandKeys returns the configured command keys in sorted order.
func (c Config) CommandKeys() []string {
	keys := make([]string, 0, len(c.Commands))
	for k := range c.Commands {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LogSummary writes the loaded values. The password is masked by length.
func (c Config) LogSummary(log logger.Logger) {
	log.Infof("MQTT configuration loaded:")
	log.Infof("  - Broker IP: %s", c.MQTT.IP)
	log.Infof("  - Port: %d", c.MQTT.Port)
	log.Infof("  - Username: %s", c.MQTT.User)
	log.Infof("  - Password: %s", MaskSecret(c.MQTT.Password))
	log.Infof("  - Hostname: %s", c.MQTT.Hostname)
	log.Infof("  - TLS: %t", c.MQTT.UseTLS)
	log.Infof("  - Commands loaded: %v", c.CommandKeys())
}

// MaskSecret replaces every character of s with '*', or returns "Not set".
func MaskSecret(s string) string {
	if s == "" {
		return "Not set"
	}
	return strings.Repeat("*", len(s))
}
