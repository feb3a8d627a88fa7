// Package http exposes the server's HTTP surface: the JSON-RPC /mcp
// endpoint, REST routes for health and tool listing, bridge session
// introspection, and the Prometheus scrape endpoint.
package http
