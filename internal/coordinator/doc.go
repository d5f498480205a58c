// Package coordinator implements the control-plane pieces the
// coordinator server (cmd/coordinator) is built from: ShardRegistry,
// which tracks which node holds each shard, and HealthMonitor, which
// probes registered nodes and reports failures back to the registry's
// caller.
//
// # Shard placement
//
// ShardRegistry maps shard IDs to nodes. It is the live, mutable view
// the coordinator consults when declaring a collection: declaring a
// collection snapshots ShardRegistry.PrimaryAssignments() into that
// collection's own ShardToServer table (internal/clustermeta), which is
// what internal/router actually resolves document operations against.
// Rebalancing the registry after a node failure does not retroactively
// change any already-declared collection's table — the collection must
// be re-declared to pick up the new placement.
//
// GetShardForKey hashes a key with FNV-1a (32-bit) into [0, NumShards).
// Document operations do not go through it: internal/router chooses a
// document's shard with its own FNV-1a 64-bit hash over the collection's
// sorted shard ids.
//
// # Health monitoring
//
// HealthMonitor polls each registered node's /health endpoint on an
// interval and calls back once a node crosses a consecutive-failure
// threshold. cmd/coordinator wires that callback to rebalance the
// failed node's shards onto the remaining healthy nodes, so future
// collection declarations route around it.
//
// # See also
//
//   - internal/cluster: node registration and broadcast wire types
//   - internal/clustermeta: per-collection shard tables and metadata
//   - cmd/coordinator: HTTP server built on both of the above
package coordinator
