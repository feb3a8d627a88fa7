// Package bridge implements the remote execution bridge: agents behind
// NAT dial in over websocket, authenticate with a shared token, and hold a
// long-lived session the server pushes commands through. Responses are
// correlated back to suspended callers by correlation ID; every pending
// request resolves exactly once, by response, timeout, or session
// invalidation.
package bridge
