// Package types defines the shared data model: tool descriptors, execution
// results, and the error kinds every component normalizes failures into.
package types
