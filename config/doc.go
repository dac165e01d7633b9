// Package config loads the ifsetd daemon configuration.
//
// Values are resolved in order: built-in defaults, the YAML file, then
// IFSET_* environment variables. Command line flags are applied by the
// daemon on top of the loaded configuration.
package config
