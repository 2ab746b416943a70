package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/zen-systems/taskgate/pkg/logging"
)

// DefaultFileName is the config file looked up in the config directory.
const DefaultFileName = "config.yaml"

// Config holds the application configuration.
type Config struct {
	Adapters []AdapterConfig `yaml:"adapters"`
	Routing  RoutingConfig   `yaml:"routing"`
	Strategy StrategyConfig  `yaml:"strategy"`
	Logging  logging.Config  `yaml:"logging"`

	// API keys only come from the environment.
	APIKeys APIKeys `yaml:"-"`

	ConfigDir string `yaml:"-"`
}

// APIKeys holds provider credentials.
type APIKeys struct {
	Anthropic string `env:"ANTHROPIC_API_KEY"`
	OpenAI    string `env:"OPENAI_API_KEY"`
	Google    string `env:"GOOGLE_API_KEY"`
	DeepSeek  string `env:"DEEPSEEK_API_KEY"`
}

// For returns the key for a provider, or "".
func (k APIKeys) For(provider string) string {
	switch provider {
	case "anthropic":
		return k.Anthropic
	case "openai":
		return k.OpenAI
	case "google":
		return k.Google
	case "deepseek":
		return k.DeepSeek
	default:
		return ""
	}
}

// Default returns the configuration used when no file exists: a single
// mock adapter and default routing and strategy settings.
func Default() *Config {
	cfg := &Config{
		Adapters: []AdapterConfig{defaultMockAdapter()},
	}
	applyDefaults(cfg)
	return cfg
}

// Load reads ~/.taskgate/config.yaml when it exists, then applies
// environment overrides. Environment variables take precedence over the file.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	path := filepath.Join(configDir, DefaultFileName)
	var cfg *Config
	if _, statErr := os.Stat(path); statErr == nil {
		cfg, err = readFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = &Config{Adapters: []AdapterConfig{defaultMockAdapter()}}
	}
	cfg.ConfigDir = configDir

	return finish(cfg)
}

// LoadFile loads configuration from a specific file.
func LoadFile(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ConfigDir = filepath.Dir(path)
	return finish(cfg)
}

// Parse decodes configuration from YAML bytes and applies defaults and
// environment overrides.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(&cfg)
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	for _, section := range []any{&cfg.APIKeys, &cfg.Logging, &cfg.Routing, &cfg.Strategy} {
		if err := env.Parse(section); err != nil {
			return nil, fmt.Errorf("failed to apply environment: %w", err)
		}
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]bool)
	for i, a := range c.Adapters {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("adapters[%d]: name is required", i))
			continue
		}
		if a.Provider == "" {
			errs = append(errs, fmt.Errorf("adapter %q: provider is required", a.Name))
		}
		key := a.Name + "@" + a.Version
		if seen[key] {
			errs = append(errs, fmt.Errorf("adapter %q version %s declared twice", a.Name, a.Version))
		}
		seen[key] = true
	}

	errs = append(errs, c.Strategy.validate()...)
	errs = append(errs, c.Routing.validate()...)

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func applyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	for i := range cfg.Adapters {
		if cfg.Adapters[i].Version == "" {
			cfg.Adapters[i].Version = "1.0.0"
		}
		if cfg.Adapters[i].Provider == "" && cfg.Adapters[i].Name == "mock" {
			cfg.Adapters[i].Provider = "mock"
		}
	}
	applyRoutingDefaults(&cfg.Routing)
	applyStrategyDefaults(&cfg.Strategy)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func getConfigDir() (string, error) {
	if dir := os.Getenv("TASKGATE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskgate"), nil
}
