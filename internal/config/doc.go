// Package config loads, normalizes, and validates storyreel's TOML
// configuration.
//
// Defaults live in defaults.go, path expansion and environment fallbacks in
// normalize.go, and range checks in validate.go. Commands receive a fully
// resolved *Config; render jobs never read configuration files themselves.
package config
