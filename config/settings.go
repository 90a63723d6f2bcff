package config

import (
	"strings"
	"time"

	"github.com/skillsenselab/resilix/logger"
	"github.com/skillsenselab/resilix/registry"
	"github.com/skillsenselab/resilix/timeout"
)

// TimeoutSettings configures the default timeout strategy.
type TimeoutSettings struct {
	// Default is applied when a pipeline does not specify its own timeout.
	Default time.Duration `yaml:"default" mapstructure:"default" validate:"omitempty,gt=0"`
	// Strategy selects optimistic or pessimistic enforcement.
	Strategy string `yaml:"strategy" mapstructure:"strategy" validate:"omitempty,oneof=optimistic pessimistic"`
}

// ApplyDefaults fills zero fields with defaults.
func (s *TimeoutSettings) ApplyDefaults() {
	if s.Default <= 0 {
		s.Default = 30 * time.Second
	}
	if s.Strategy == "" {
		s.Strategy = "optimistic"
	}
}

// StrategyValue maps the configured name onto a timeout.Strategy.
func (s *TimeoutSettings) StrategyValue() timeout.Strategy {
	if s.Strategy == "pessimistic" {
		return timeout.Pessimistic
	}
	return timeout.Optimistic
}

// TimeoutConfig builds a timeout.Config from these settings.
func (s *TimeoutSettings) TimeoutConfig() timeout.Config {
	return timeout.Config{
		Timeout:  s.Default,
		Strategy: s.StrategyValue(),
	}
}

// RegistrySettings configures pipeline registry behavior.
type RegistrySettings struct {
	// CaseInsensitiveKeys makes pipeline keys compare case-insensitively.
	CaseInsensitiveKeys bool `yaml:"case_insensitive_keys" mapstructure:"case_insensitive_keys"`
}

// Options builds registry.Options from these settings.
func (s *RegistrySettings) Options(log *logger.Logger) registry.Options {
	opts := registry.Options{Logger: log}
	if s.CaseInsensitiveKeys {
		opts.KeyNormalizer = strings.ToLower
	}
	return opts
}

// Settings is the root configuration for a resilix-based application.
type Settings struct {
	Logging  logger.Config    `yaml:"logging" mapstructure:"logging"`
	Timeout  TimeoutSettings  `yaml:"timeout" mapstructure:"timeout"`
	Registry RegistrySettings `yaml:"registry" mapstructure:"registry"`
}

// ApplyDefaults fills zero fields with defaults.
func (s *Settings) ApplyDefaults() {
	s.Logging.ApplyDefaults()
	s.Timeout.ApplyDefaults()
}

// Validate checks the settings against their struct tags.
func (s *Settings) Validate() error {
	return validateStruct(s)
}
