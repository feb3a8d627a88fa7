// Package main is the entry point for the toolgate server.
//
// The server exposes a JSON-RPC tool endpoint, authorizes every call
// against per-key policies, and executes tools locally or by pushing
// them to agents connected through the reverse websocket bridge.
//
// Configuration:
//   - Environment variables (12-factor), with an optional .env file
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	./server -port 8000 -bridge-port 8765
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
