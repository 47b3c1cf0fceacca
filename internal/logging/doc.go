// Package logging builds the slog loggers used across the daemon and defines
// the standardized structured field names.
package logging
