// Package middleware provides gin middleware for the HTTP surface:
// CORS, per-IP rate limiting, and API credential extraction.
package middleware
