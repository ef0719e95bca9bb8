// Package store is the content-addressable artifact cache. Normalized audio
// is keyed by its SHA-256 digest, deduplicated across sources, and evicted
// least-recently-used when capacity runs out. Recognition results are cached
// per content hash alongside the artifacts.
package store
