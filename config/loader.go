package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for environment variable overrides, e.g.
// RESILIX_TIMEOUT_STRATEGY=pessimistic.
const envPrefix = "RESILIX"

// defaultSearchPaths are tried in order when no config file is given.
var defaultSearchPaths = []string{
	"./resilix.yml",
	"./config/resilix.yml",
}

// LoaderOptions holds optional file overrides for Load.
type LoaderOptions struct {
	// ConfigFile is an explicit YAML config path. When set, the file
	// must exist.
	ConfigFile string
	// EnvFile is an explicit .env path loaded before env binding. When
	// set, the file must exist.
	EnvFile string
	// EnvPrefix overrides the RESILIX env var prefix.
	EnvPrefix string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderOptions)

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lo *LoaderOptions) { lo.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lo *LoaderOptions) { lo.EnvFile = path }
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lo *LoaderOptions) { lo.EnvPrefix = prefix }
}

// Load populates s from YAML, .env, and environment variables, then
// applies defaults and validates the result.
//
// Precedence, lowest to highest: YAML file, environment variables
// (which a .env file may supply).
func Load(s *Settings, opts ...LoaderOption) error {
	var lo LoaderOptions
	for _, opt := range opts {
		opt(&lo)
	}
	prefix := lo.EnvPrefix
	if prefix == "" {
		prefix = envPrefix
	}

	if lo.EnvFile != "" {
		if err := godotenv.Load(lo.EnvFile); err != nil {
			return fmt.Errorf("config: load env file %s: %w", lo.EnvFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindKeys(v)

	configFile := lo.ConfigFile
	if configFile == "" {
		configFile = findConfigFile()
	} else if !fileExists(configFile) {
		return fmt.Errorf("config: file %s does not exist", configFile)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	if err := v.Unmarshal(s); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}

	s.ApplyDefaults()
	return s.Validate()
}

// bindKeys registers every settings key with viper so AutomaticEnv can
// resolve it even when no config file provides the key.
func bindKeys(v *viper.Viper) {
	keys := []string{
		"logging.level",
		"logging.format",
		"logging.output",
		"logging.no_color",
		"logging.timestamp",
		"logging.caller",
		"timeout.default",
		"timeout.strategy",
		"registry.case_insensitive_keys",
	}
	for _, key := range keys {
		// BindEnv with a single argument uses prefix + replacer.
		_ = v.BindEnv(key)
	}
}

// findConfigFile returns the first default search path that exists.
func findConfigFile() string {
	for _, path := range defaultSearchPaths {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
