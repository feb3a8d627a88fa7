// Package logging wraps zap with environment-aware defaults: JSON encoding
// in production, colored console output in development.
package logging
