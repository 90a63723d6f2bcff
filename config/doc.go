// Package config loads resilix settings from YAML files and the
// environment.
//
// Settings are layered: a YAML file (if present) provides the base,
// environment variables override it, and an optional .env file can
// supply those variables during development. The result is validated
// with struct tags before use.
//
//	var s config.Settings
//	err := config.Load(&s, config.WithConfigFile("resilix.yml"))
package config
