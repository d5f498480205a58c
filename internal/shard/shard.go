// Package shard implements the fundamental storage unit for docshaper's distributed system.
// See doc.go for complete package documentation.
package shard

import (
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dreamware/docshaper/internal/storage"
)

// ShardState is a shard's operational mode, checked before accepting
// operations and reported through Info for cluster-state broadcasts.
type ShardState string

const (
	ShardStateActive    ShardState = "active"
	ShardStateMigrating ShardState = "migrating"
	ShardStateDeleted   ShardState = "deleted"
)

// Shard is a byte-oriented partition of one collection's key space,
// holding the shaped document bytes CollectionShard (document.go)
// encodes and decodes around it. A Shard knows nothing about
// collections, documents, or shaping — it stores whatever bytes it's
// given under whatever key it's given, and tracks operation counts for
// Info/GetStats.
type Shard struct {
	Store storage.Store
	Stats *ShardStats

	mu    sync.RWMutex
	State ShardState

	ID      int
	Primary bool // primary handles all reads/writes; replica is unused by the router today
}

// ShardStats is a shard's cumulative operation counts plus its current
// storage footprint.
type ShardStats struct {
	Ops     OperationStats
	Storage storage.StoreStats
}

// OperationStats are atomically updated per-operation counters, never
// reset for the life of the shard.
type OperationStats struct {
	Gets    uint64
	Puts    uint64
	Deletes uint64
}

// ShardInfo is a point-in-time snapshot of a shard's identity, state,
// and size, safe to serialize for admin responses or cluster broadcasts.
type ShardInfo struct {
	ID       int
	Primary  bool
	State    ShardState
	KeyCount int
	ByteSize int
}

// NewShard creates an Active shard backed by an empty MemoryStore.
func NewShard(id int, primary bool) *Shard {
	return &Shard{
		ID:      id,
		Primary: primary,
		Store:   storage.NewMemoryStore(),
		State:   ShardStateActive,
		Stats:   &ShardStats{},
	}
}

// Get fetches the bytes stored at key, counting the attempt regardless
// of outcome.
func (s *Shard) Get(key string) ([]byte, error) {
	atomic.AddUint64(&s.Stats.Ops.Gets, 1)
	return s.Store.Get(key)
}

// Put stores value at key, counting the attempt regardless of outcome.
func (s *Shard) Put(key string, value []byte) error {
	atomic.AddUint64(&s.Stats.Ops.Puts, 1)
	return s.Store.Put(key, value)
}

// Delete removes key, idempotently, counting the attempt regardless of
// whether key existed.
func (s *Shard) Delete(key string) error {
	atomic.AddUint64(&s.Stats.Ops.Deletes, 1)
	return s.Store.Delete(key)
}

// ListKeys returns every key currently stored in the shard, in no
// particular order.
func (s *Shard) ListKeys() []string {
	return s.Store.List()
}

// OwnsKey reports whether key hashes (FNV-1a mod numShards) to this
// shard's ID, the same scheme as ShardRegistry.GetShardForKey. Document
// placement does not use it; router.ResolveShard hashes differently.
func (s *Shard) OwnsKey(key string, numShards int) bool {
	if numShards <= 0 {
		return false
	}

	h := fnv.New32a()
	h.Write([]byte(key))
	targetShard := int(h.Sum32()) % numShards

	return targetShard == s.ID
}

// GetStats returns a consistent snapshot of operation counts and
// storage size.
func (s *Shard) GetStats() ShardStats {
	storageStats := s.Store.Stats()

	return ShardStats{
		Ops: OperationStats{
			Gets:    atomic.LoadUint64(&s.Stats.Ops.Gets),
			Puts:    atomic.LoadUint64(&s.Stats.Ops.Puts),
			Deletes: atomic.LoadUint64(&s.Stats.Ops.Deletes),
		},
		Storage: storageStats,
	}
}

// Info returns a serializable snapshot of the shard's identity, state,
// and size.
func (s *Shard) Info() ShardInfo {
	s.mu.RLock()
	state := s.State
	s.mu.RUnlock()

	storageStats := s.Store.Stats()

	return ShardInfo{
		ID:       s.ID,
		Primary:  s.Primary,
		State:    state,
		KeyCount: storageStats.Keys,
		ByteSize: storageStats.Bytes,
	}
}

// SetState transitions the shard's operational mode, e.g. to Migrating
// while its documents are being moved to another node ahead of a
// rebalance.
func (s *Shard) SetState(state ShardState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
}

// ListKeysInRange returns the shard's keys falling in [start, end),
// sorted lexicographically. Used by migration code to move a shard's
// documents in ordered batches rather than all at once.
func (s *Shard) ListKeysInRange(start, end string) []string {
	allKeys := s.Store.List()

	var keysInRange []string
	for _, key := range allKeys {
		if key >= start && key < end {
			keysInRange = append(keysInRange, key)
		}
	}

	sort.Strings(keysInRange)
	return keysInRange
}

// DeleteRange deletes every key in [start, end) and returns how many
// were removed, for cleaning up a shard's documents once migration has
// copied them elsewhere.
func (s *Shard) DeleteRange(start, end string) int {
	keysToDelete := s.ListKeysInRange(start, end)

	for _, key := range keysToDelete {
		_ = s.Delete(key)
	}

	return len(keysToDelete)
}
