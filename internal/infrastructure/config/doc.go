// Package config loads all recognized options from environment variables,
// with an optional .env file for local development.
package config
