// Package coordinator implements the orchestration layer for docshaper's distributed
// storage system. See doc.go for complete package documentation.
package coordinator

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
)

// ShardAssignment records which node holds one of a collection's shards.
// A shard has exactly one primary; replica assignments are not yet used
// by the router, which always addresses the primary.
type ShardAssignment struct {
	NodeID    string // node that owns this shard
	IsPrimary bool   // primary handles all reads/writes; replicas are not yet routed to
	ShardID   int    // index into the collection's shard table
}

// ShardRegistry is the coordinator's live view of shard-to-node placement,
// independent of any single collection's declared shard table
// (clustermeta.CollectionInfo.ShardToServer, built by snapshotting
// PrimaryAssignments at declare time). Node registration assigns shards
// into this registry; health-triggered rebalances and manual
// RebalanceShards calls update it; declaring a collection freezes a copy
// of it into that collection's own routing table.
type ShardRegistry struct {
	assignments map[int]*ShardAssignment // shardID -> assignment
	mu          sync.RWMutex
	numShards   int
}

// NewShardRegistry creates a registry sized for numShards shards, fixed
// for the registry's lifetime.
func NewShardRegistry(numShards int) *ShardRegistry {
	return &ShardRegistry{
		assignments: make(map[int]*ShardAssignment),
		numShards:   numShards,
	}
}

// AssignShard assigns shardID to nodeID, overwriting any prior assignment.
func (r *ShardRegistry) AssignShard(shardID int, nodeID string, isPrimary bool) error {
	if shardID < 0 || shardID >= r.numShards {
		return fmt.Errorf("invalid shard ID %d, must be in range [0, %d)", shardID, r.numShards)
	}
	if nodeID == "" {
		return errors.New("node ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.assignments[shardID] = &ShardAssignment{
		ShardID:   shardID,
		NodeID:    nodeID,
		IsPrimary: isPrimary,
	}

	return nil
}

// RemoveShard unassigns shardID. Any collection whose shard table still
// points at it will fail to route requests to that shard until it is
// reassigned and the collection is re-declared.
func (r *ShardRegistry) RemoveShard(shardID int) error {
	if shardID < 0 || shardID >= r.numShards {
		return fmt.Errorf("invalid shard ID %d, must be in range [0, %d)", shardID, r.numShards)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.assignments, shardID)
	return nil
}

// GetAssignment returns a copy of shardID's current assignment, or nil if
// the shard is unassigned.
func (r *ShardRegistry) GetAssignment(shardID int) *ShardAssignment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assignment := r.assignments[shardID]
	if assignment == nil {
		return nil
	}

	cp := *assignment
	return &cp
}

// GetAllAssignments returns copies of every current assignment, primary
// and replica, in no particular order.
func (r *ShardRegistry) GetAllAssignments() []*ShardAssignment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assignments := make([]*ShardAssignment, 0, len(r.assignments))
	for _, assignment := range r.assignments {
		cp := *assignment
		assignments = append(assignments, &cp)
	}

	return assignments
}

// PrimaryAssignments returns the registry's primary assignments as
// shardID -> nodeID, the exact shape handleDeclareCollection needs when
// it resolves node addresses and freezes them into a collection's
// ShardToServer table.
func (r *ShardRegistry) PrimaryAssignments() map[int]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int]string)
	for shardID, a := range r.assignments {
		if a.IsPrimary {
			out[shardID] = a.NodeID
		}
	}
	return out
}

// GetShardForKey hashes key with FNV-1a (32-bit) and maps it into
// [0, numShards). internal/router does not use it: router.ResolveShard
// hashes with FNV-1a 64-bit over a collection's sorted shard ids, so the
// two can pick different shards for the same key.
func (r *ShardRegistry) GetShardForKey(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32()) % r.numShards
}

// GetNodeForKey resolves key to its shard and returns the node currently
// holding that shard, or an error if the shard is unassigned.
func (r *ShardRegistry) GetNodeForKey(key string) (string, error) {
	shardID := r.GetShardForKey(key)

	r.mu.RLock()
	assignment := r.assignments[shardID]
	r.mu.RUnlock()

	if assignment == nil {
		return "", fmt.Errorf("shard %d is not assigned to any node", shardID)
	}

	return assignment.NodeID, nil
}

// GetNodeShards returns the shard IDs currently assigned to nodeID, in no
// particular order.
func (r *ShardRegistry) GetNodeShards(nodeID string) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var shards []int
	for shardID, assignment := range r.assignments {
		if assignment.NodeID == nodeID {
			shards = append(shards, shardID)
		}
	}

	return shards
}

// NumShards returns the fixed shard count this registry was created with.
func (r *ShardRegistry) NumShards() int {
	return r.numShards
}

// RebalanceShards reassigns every shard to nodes in round-robin order
// (shard i -> nodes[i % len(nodes)]), all as primaries. It overwrites
// the entire assignment table; it does not move document data, only the
// registry's bookkeeping of who should hold each shard. cmd/coordinator
// does not call it: its health callback reassigns only the failed
// node's shards. Any already-declared collection keeps routing to the
// old table until re-declared.
func (r *ShardRegistry) RebalanceShards(nodes []string) error {
	if len(nodes) == 0 {
		return errors.New("cannot rebalance with no nodes")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for shardID := 0; shardID < r.numShards; shardID++ {
		nodeID := nodes[shardID%len(nodes)]
		r.assignments[shardID] = &ShardAssignment{
			ShardID:   shardID,
			NodeID:    nodeID,
			IsPrimary: true,
		}
	}

	return nil
}
