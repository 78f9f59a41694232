// Package config loads application configuration from environment variables.
package config
