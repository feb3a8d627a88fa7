// Package providers groups the built-in tool implementations. Each
// subpackage exposes a Descriptors function returning the tools it
// contributes; the server registers them all at startup.
package providers
