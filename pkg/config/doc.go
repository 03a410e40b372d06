// Package config loads application configuration from SAVEIT_* environment
// variables with sensible defaults, and validates the result before the
// service starts.
package config
