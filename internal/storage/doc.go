// Package storage defines the byte-oriented Store interface each shard
// keeps its documents' encoded bytes in, plus MemoryStore, the only
// implementation: an in-memory, mutex-guarded map. internal/shard wraps
// a Store per shard; internal/shard/document.go layers shaper encoding
// on top so callers never see raw bytes.
//
// Store itself knows nothing about documents, collections, or keys
// beyond opaque strings — Get, Put, Delete, List, Stats. Document-level
// concerns (key validation, shaping, shard routing) live above this
// package, in keygen, shaper, and shard.
package storage
