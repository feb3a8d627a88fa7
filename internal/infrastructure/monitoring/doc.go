// Package monitoring exposes Prometheus metrics for tool dispatch, the
// agent bridge, and the HTTP surface.
package monitoring
