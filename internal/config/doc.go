// Package config loads, validates, and defaults the TOML configuration for
// the barista daemon and CLI.
package config
