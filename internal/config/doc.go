// Package config loads and validates YAML settings for the alarm daemon.
package config
