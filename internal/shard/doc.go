// Package shard implements the per-collection storage unit that a node
// holds: Shard, a byte-keyed partition of one collection's key space
// backed by internal/storage, and CollectionShard (document.go), which
// layers shaping on top so callers put and get value.Value documents
// rather than raw bytes.
//
// A node creates one CollectionShard per (collection, shard ID) pair it
// is assigned, lazily on first request. internal/router chooses which
// shard a document belongs to (router.ResolveShard); Shard.OwnsKey and
// ShardRegistry.GetShardForKey use a separate FNV-1a 32-bit modulo that
// the router does not consult. Once chosen, the document's full byte
// representation is shaped, wire-encoded, and handed to Shard.Put
// unchanged by anything in this package.
//
// # See also
//
//   - internal/storage: the byte-oriented Store this package wraps
//   - internal/shaper: the shape/attribute encoding CollectionShard uses
//   - internal/coordinator: ShardRegistry, which decides shard placement
package shard
