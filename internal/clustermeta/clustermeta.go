// Package clustermeta is the read-mostly cache of collection-to-shard
// topology the router consults on every operation (spec §3 "CollectionInfo"
// / "ClusterMetadata cache", §4.5).
//
// The cache itself never talks to the outside world: an external watcher
// (out of scope per spec §1) calls Update whenever the coordination store
// changes, and the cache atomically swaps in the new view so that
// concurrent readers always see either the old or the new snapshot, never
// a partial one.
package clustermeta

import (
	"sync/atomic"

	"github.com/dreamware/docshaper/internal/docerr"
)

// CollectionInfo describes one collection's sharding topology: its name,
// its cluster-wide numeric id, the ordered list of attributes that
// determine a document's shard (default ["_key"]), and the shard ->
// server assignment (spec §3).
//
// Field names and JSON tags follow the ArangoDB Go driver's collection
// option vocabulary (CollectionInfo, ShardKeys, Shards) for a reader
// already familiar with that ecosystem.
type CollectionInfo struct {
	Name       string            `json:"name"`
	ID         uint64            `json:"id"`
	ShardKeys  []string          `json:"shardKeys"`
	ShardToServer map[string]string `json:"shards"` // ShardId -> ServerId
}

// DefaultShardKeys is the sharding-attribute list used when a collection
// does not declare its own (spec §3).
var DefaultShardKeys = []string{"_key"}

// UsesDefaultShardKeys reports whether ci shards exclusively on _key,
// which is the precondition for the router's single-shard fast path
// (spec §4.3).
func (ci CollectionInfo) UsesDefaultShardKeys() bool {
	if len(ci.ShardKeys) != 1 {
		return false
	}
	return ci.ShardKeys[0] == "_key"
}

type collectionKey struct {
	db   string
	name string
}

// Metadata is the process-wide collection topology cache. The zero value
// is not usable; construct with New.
type Metadata struct {
	snapshot atomic.Pointer[map[collectionKey]CollectionInfo]
	revision atomic.Int64

	uniqueID      atomic.Uint64
	transactionID atomic.Uint64
}

// New returns an empty Metadata cache at revision 0.
func New() *Metadata {
	m := &Metadata{}
	empty := make(map[collectionKey]CollectionInfo)
	m.snapshot.Store(&empty)
	return m
}

// GetCollection returns the cached CollectionInfo for (db, name). Callers
// that get CollectionNotFound should not retry on the same snapshot —
// they should wait for the next Update (spec §4.5: "revision so callers
// can retry on staleness").
func (m *Metadata) GetCollection(db, name string) (CollectionInfo, error) {
	snap := *m.snapshot.Load()
	ci, ok := snap[collectionKey{db: db, name: name}]
	if !ok {
		return CollectionInfo{}, docerr.New(docerr.CollectionNotFound, "no collection %s/%s in cluster metadata", db, name)
	}
	return ci, nil
}

// Update atomically replaces db's slice of the cached view with
// collections and bumps the revision counter. Other databases' entries
// are carried over unchanged. This is the entry point an external
// watcher on the coordination store calls; Metadata itself never
// initiates a refresh.
func (m *Metadata) Update(collections map[string]CollectionInfo, db string) {
	old := *m.snapshot.Load()
	next := make(map[collectionKey]CollectionInfo, len(old)+len(collections))
	for key, ci := range old {
		if key.db != db {
			next[key] = ci
		}
	}
	for name, ci := range collections {
		next[collectionKey{db: db, name: name}] = ci
	}
	m.snapshot.Store(&next)
	m.revision.Add(1)
}

// Revision returns the cache's current monotonically increasing
// revision number.
func (m *Metadata) Revision() int64 {
	return m.revision.Load()
}

// UniqueID returns a value intended to be globally unique across the
// cluster (spec §4.5: "fed by an external allocator"). This in-process
// implementation is a local monotonic counter suitable for a
// single-coordinator deployment or tests; a multi-coordinator deployment
// must seed each coordinator's counter from a disjoint range or swap this
// for a cluster-wide allocator.
func (m *Metadata) UniqueID() uint64 {
	return m.uniqueID.Add(1)
}

// NewTransactionID returns a value unique within this coordinator only
// (spec §4.5), used to correlate a fan-out's asynchronous shard replies.
func (m *Metadata) NewTransactionID() uint64 {
	return m.transactionID.Add(1)
}
