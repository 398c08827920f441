package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	defaultConcurrency    = 10
	defaultTimeoutSeconds = 30
)

// Config is the top-level configuration for check-updates. Every field has
// a default; running without a config file is the normal case.
type Config struct {
	// Registries overrides the package index base URLs, keyed by registry
	// name ("pypi", "crates", "npm"). Values may reference environment
	// variables as ${VAR}.
	Registries map[string]string `yaml:"registries"`
	// Concurrency bounds parallel registry lookups.
	Concurrency int `yaml:"concurrency"`
	// TimeoutSeconds bounds each registry request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Registries:     map[string]string{},
		Concurrency:    defaultConcurrency,
		TimeoutSeconds: defaultTimeoutSeconds,
	}
}

// Timeout returns the per-request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RegistryURL returns the configured base URL for a registry, or empty when
// the built-in default applies.
func (c *Config) RegistryURL(name string) string {
	return c.Registries[name]
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// Load reads and parses a configuration file, expanding environment
// variable references in registry URLs.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	cfg := Default()
	if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	for name, url := range cfg.Registries {
		cfg.Registries[name] = expandEnv(url)
	}

	if validateErr := validate(cfg); validateErr != nil {
		return nil, validateErr
	}
	return cfg, nil
}

// LoadOrDefault finds and loads the config file from the standard
// locations, falling back to defaults when none exists.
func LoadOrDefault() (*Config, error) {
	path, err := FindConfigFile()
	if err != nil {
		logger.Debugf("no config file found, using defaults")
		return Default(), nil
	}
	logger.Debugf("loading config from %s", path)
	return Load(path)
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{"."}
	if homeDir != "" {
		locations = append(locations, homeDir, filepath.Join(homeDir, ".config"))
	}

	patterns := []string{
		".check-updates.yaml",
		".check-updates.yml",
		"check-updates.yaml",
		"check-updates.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// expandEnv expands ${ENV_VAR} references in a value.
func expandEnv(raw string) string {
	return envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})
}

// validate checks for usable configuration values.
func validate(cfg *Config) error {
	if cfg.Concurrency <= 0 {
		return errors.New("concurrency must be positive")
	}
	if cfg.TimeoutSeconds <= 0 {
		return errors.New("timeout_seconds must be positive")
	}
	return nil
}
