// Package main implements the docshaper shard server: the worker that
// owns a set of (shardId, collection) partitions, shapes and stores the
// documents routed to it, and answers the coordinator's per-shard RPCs.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│                Node                      │
//	├─────────────────────────────────────────┤
//	│  HTTP API:                              │
//	│    /health                - health check │
//	│    /control               - control msgs │
//	│    /_db/{db}/_api/shard/* - documents    │
//	│    /info                  - node info    │
//	├─────────────────────────────────────────┤
//	│  Components:                            │
//	│    Node               - runtime state    │
//	│    CollectionShard map - active shards   │
//	│    Registration       - coordinator link │
//	└─────────────────────────────────────────┘
//
// Configuration:
//   - NODE_ID: Unique node identifier (required)
//   - NODE_LISTEN: Listen address (default: ":8081")
//   - NODE_ADDR: Public address for coordinator (default: "http://127.0.0.1:8081")
//   - COORDINATOR_ADDR: Coordinator URL (required)
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dreamware/docshaper/internal/cluster"
	"github.com/dreamware/docshaper/internal/docerr"
	"github.com/dreamware/docshaper/internal/shard"
	"github.com/dreamware/docshaper/internal/value"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

// collectionKey identifies one (shardId, collection) partition hosted
// on this node.
type collectionKey struct {
	collection string
	shardID    string
}

// Node represents a shard server in the distributed cluster, managing
// the (shardId, collection) partitions routed to it and creating them
// on demand, matching the coordinator's lazy placement model.
type Node struct {
	collections map[collectionKey]*shard.CollectionShard
	ID          string
	mu          sync.RWMutex
}

// NewNode creates a new node instance ready to manage collection shards.
func NewNode(id string) *Node {
	return &Node{
		ID:          id,
		collections: make(map[collectionKey]*shard.CollectionShard),
	}
}

// getOrCreateCollectionShard returns the CollectionShard for (shardID,
// collection), creating it on first use.
func (n *Node) getOrCreateCollectionShard(shardID, collection string) *shard.CollectionShard {
	key := collectionKey{shardID: shardID, collection: collection}

	n.mu.RLock()
	cs, ok := n.collections[key]
	n.mu.RUnlock()
	if ok {
		return cs
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if cs, ok := n.collections[key]; ok {
		return cs
	}

	cs = shard.NewCollectionShard(len(n.collections), collection)
	n.collections[key] = cs
	return cs
}

func main() {
	nodeID := mustGetenv("NODE_ID")
	listen := getenv("NODE_LISTEN", ":8081")
	public := getenv("NODE_ADDR", "http://127.0.0.1:8081")
	coord := mustGetenv("COORDINATOR_ADDR")

	node := NewNode(nodeID)
	log.Printf("node[%s] initialized (collection shards created on demand)", nodeID)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/control", handleControl)

	mux.HandleFunc("/_db/", func(w http.ResponseWriter, r *http.Request) {
		handleShardRequest(node, w, r)
	})

	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		handleNodeInfo(node, w, r)
	})

	s := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("node[%s] listening on %s (public %s)", nodeID, listen, public)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("listen: %v", err)
		}
	}()

	ctx := context.Background()
	register(ctx, coord, nodeID, public)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("node stopped")
}

// register attempts to register the node with the coordinator, retrying
// on failure to handle coordinator startup delays.
func register(ctx context.Context, coord, id, addr string) {
	body := cluster.RegisterRequest{Node: cluster.NodeInfo{ID: id, Addr: addr}}
	var lastErr error

	for i := 0; i < 10; i++ {
		lastErr = cluster.PostJSON(ctx, coord+"/register", body, nil)
		if lastErr == nil {
			log.Printf("registered with coordinator @ %s", coord)
			return
		}
		log.Printf("register retry %d: %v", i+1, lastErr)
		time.Sleep(400 * time.Millisecond)
	}

	logFatal("failed to register with coordinator: %v", lastErr)
}

// handleControl processes control messages from the coordinator.
func handleControl(w http.ResponseWriter, r *http.Request) {
	var raw bytes.Buffer
	if _, err := raw.ReadFrom(r.Body); err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	log.Printf("control payload: %s", raw.Bytes())
	w.WriteHeader(http.StatusNoContent)
}

// handleShardRequest routes document operations, creating the target
// collection shard on demand.
//
// Path: /_db/{db}/_api/shard/{shardId}/{collection}[/{key}]
func handleShardRequest(node *Node, w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// ["_db", db, "_api", "shard", shardId, collection, (key)]
	if len(parts) < 6 || parts[0] != "_db" || parts[2] != "_api" || parts[3] != "shard" {
		http.Error(w, "invalid path format", http.StatusBadRequest)
		return
	}

	shardID := parts[4]
	collection := parts[5]
	var key string
	if len(parts) >= 7 {
		key = strings.Join(parts[6:], "/")
	}

	cs := node.getOrCreateCollectionShard(shardID, collection)

	switch r.Method {
	case http.MethodPost:
		if key != "" {
			http.Error(w, "key must not be present on create", http.StatusBadRequest)
			return
		}
		handleCreateDocument(cs, w, r)
	case http.MethodGet:
		if key == "" {
			http.Error(w, "key required", http.StatusBadRequest)
			return
		}
		handleGetDocument(cs, key, w, r)
	case http.MethodDelete:
		if key == "" {
			http.Error(w, "key required", http.StatusBadRequest)
			return
		}
		handleDeleteDocument(cs, key, w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleCreateDocument stores a document the coordinator has already
// assigned a final _key to: the coordinator mints it before routing,
// since default sharding hashes _key to choose the shard in the first
// place, so by the time a create reaches a node the key is no longer
// negotiable.
func handleCreateDocument(cs *shard.CollectionShard, w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	doc, err := value.FromJSON(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if doc.Kind != value.KindObject {
		http.Error(w, "document body must be an object", http.StatusBadRequest)
		return
	}
	k, ok := doc.Object.Get("_key")
	if !ok || k.Kind != value.KindString || k.Str == "" {
		http.Error(w, "document must carry a final _key", http.StatusBadRequest)
		return
	}

	if err := cs.Put(k.Str, doc); err != nil {
		writeDocError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"_key": k.Str})
}

func handleGetDocument(cs *shard.CollectionShard, key string, w http.ResponseWriter, _ *http.Request) {
	doc, err := cs.Get(key)
	if err != nil {
		writeDocError(w, err)
		return
	}

	data, err := value.ToJSON(doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func handleDeleteDocument(cs *shard.CollectionShard, key string, w http.ResponseWriter, _ *http.Request) {
	if err := cs.Delete(key); err != nil {
		writeDocError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeDocError maps this module's closed error taxonomy onto an HTTP
// status code, in the same spirit as ClusterMethods.cpp forwarding a
// shard's domain-level error status verbatim rather than collapsing
// everything to 500.
func writeDocError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch docerr.CodeOf(err) {
	case docerr.NotFound, docerr.CollectionNotFound:
		status = http.StatusNotFound
	case docerr.KeyBad, docerr.KeyUnexpected, docerr.BadParameter, docerr.ShaperCycle:
		status = http.StatusBadRequest
	case docerr.OutOfKeys, docerr.InvalidKeyGenerator, docerr.ShaperFailed, docerr.OutOfMemory:
		status = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), status)
}

// handleNodeInfo returns comprehensive information about the node and
// all its managed collection shards.
func handleNodeInfo(node *Node, w http.ResponseWriter, _ *http.Request) {
	node.mu.RLock()
	defer node.mu.RUnlock()

	type partitionInfo struct {
		Collection string `json:"collection"`
		ShardID    string `json:"shard_id"`
	}
	partitions := make([]partitionInfo, 0, len(node.collections))
	for k := range node.collections {
		partitions = append(partitions, partitionInfo{Collection: k.collection, ShardID: k.shardID})
	}

	response := struct {
		NodeID     string          `json:"node_id"`
		Partitions []partitionInfo `json:"partitions"`
		Count      int             `json:"partition_count"`
	}{
		NodeID:     node.ID,
		Partitions: partitions,
		Count:      len(partitions),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// getenv retrieves an environment variable with a default fallback.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// mustGetenv retrieves a required environment variable, terminating the
// program if it's not set.
func mustGetenv(k string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	logFatal("missing env %s", k)
	return ""
}
