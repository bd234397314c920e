// Package config loads and validates the bridge configuration from a
// YAML file, with ${VAR} environment expansion and defaults for every
// optional field.
package config
