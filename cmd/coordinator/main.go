// Package main implements the docshaper coordinator service, which orchestrates
// the distributed document store by managing node registration, shard assignment,
// collection metadata, and document routing.
//
// The coordinator is the central control plane for the docshaper distributed
// system, responsible for:
//   - Node registration and health monitoring
//   - Shard-to-node assignment management
//   - Collection declaration and cluster metadata distribution
//   - Document routing (create/read/delete) via internal/router
//   - Cluster-wide broadcast operations
//   - Administrative operations (shard reassignment, rebalancing)
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│            Coordinator                   │
//	├─────────────────────────────────────────┤
//	│  HTTP API:                              │
//	│    /register               - node reg   │
//	│    /nodes                  - list nodes │
//	│    /_db/{db}/_collection    - declare   │
//	│    /_db/{db}/_api/document/* - documents│
//	│    /shards                 - assignments│
//	│    /broadcast              - cluster ops│
//	│    /health                  - health    │
//	├─────────────────────────────────────────┤
//	│  Components:                            │
//	│    server        - HTTP handler state   │
//	│    ShardRegistry - shard assignments    │
//	│    clustermeta   - collection metadata  │
//	│    router        - document routing     │
//	│    nodes[]       - active node list     │
//	└─────────────────────────────────────────┘
//
// Configuration:
//   - COORDINATOR_ADDR: Listen address (default: ":8080")
//
// Example usage:
//
//	# Start coordinator
//	COORDINATOR_ADDR=:8080 ./coordinator
//
//	# Register a node
//	curl -X POST localhost:8080/register \
//	  -d '{"node":{"id":"node-1","addr":"http://localhost:8081"}}'
//
//	# Declare a collection
//	curl -X POST localhost:8080/_db/_system/_collection \
//	  -d '{"name":"users","shardKeys":["_key"]}'
//
//	# Create a document (routed to the appropriate shard)
//	curl -X POST localhost:8080/_db/_system/_api/document/users \
//	  -d '{"name":"Alice","age":30}'
package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/exp/slices"

	"github.com/dreamware/docshaper/internal/cluster"
	"github.com/dreamware/docshaper/internal/clustermeta"
	"github.com/dreamware/docshaper/internal/coordinator"
	"github.com/dreamware/docshaper/internal/docerr"
	"github.com/dreamware/docshaper/internal/router"
	"github.com/dreamware/docshaper/internal/rpc"
	"github.com/dreamware/docshaper/internal/value"
)

// Health status constants for node health monitoring
const (
	healthStatusHealthy   = "healthy"
	healthStatusUnhealthy = "unhealthy"
	healthStatusUnknown   = "unknown"
)

// main initializes and runs the coordinator service, setting up HTTP endpoints
// for cluster management and gracefully handling shutdown signals.
//
// The main function:
//  1. Configures the HTTP server with appropriate timeouts
//  2. Registers all API endpoints for cluster operations
//  3. Starts the server in a goroutine for non-blocking operation
//  4. Sets up signal handlers for graceful shutdown
//  5. Waits for termination signal (SIGINT/SIGTERM)
//  6. Performs graceful shutdown with 5-second timeout
//
// Exit codes:
//   - 0: Normal shutdown via signal
//   - 1: Fatal error during startup or operation
func main() {
	// Get listen address from environment or use default
	addr := getenv("COORDINATOR_ADDR", ":8080")

	// Initialize server with shard registry
	srv := newServer()

	// Start health monitor in background
	go srv.healthMonitor.Start(context.Background(), func() []cluster.NodeInfo {
		srv.mu.RLock()
		defer srv.mu.RUnlock()
		// Return a copy of the nodes slice for health monitoring
		nodes := make([]cluster.NodeInfo, len(srv.nodes))
		copy(nodes, srv.nodes)
		return nodes
	})

	// Configure HTTP routes
	mux := http.NewServeMux()

	// Node management endpoints
	mux.HandleFunc("/register", srv.handleRegister)   // POST: Register/update node
	mux.HandleFunc("/nodes", srv.handleListNodes)     // GET: List all nodes
	mux.HandleFunc("/broadcast", srv.handleBroadcast) // POST: Broadcast to all nodes
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Collection and document endpoints - route client requests to shards
	mux.HandleFunc("/_db/", srv.handleDocumentRequest)

	// Shard management endpoints for admin operations
	mux.HandleFunc("/shards", srv.handleShards)             // GET: List shard assignments
	mux.HandleFunc("/shards/assign", srv.handleShardAssign) // POST: Manual shard assignment

	// Configure HTTP server with security timeouts
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second, // Prevent slowloris attacks
	}

	// Start server in goroutine to allow for graceful shutdown
	go func() {
		log.Printf("coordinator listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// Set up signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Wait for shutdown signal
	<-stop

	// Stop health monitor first
	log.Println("Stopping health monitor...")
	srv.healthMonitor.Stop()

	// Initiate graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("coordinator stopped")
}

// server encapsulates the coordinator's runtime state, managing node registration
// and shard assignments with thread-safe access patterns.
//
// The server maintains:
//   - A list of registered nodes with their connection details
//   - A shard registry mapping data partitions to nodes
//   - Thread-safe access through read/write mutex
//
// Concurrency model:
//   - Multiple readers can access node list concurrently (RLock)
//   - Write operations (registration, updates) require exclusive access (Lock)
//   - Registry has its own internal synchronization
//
// Memory considerations:
//   - Each NodeInfo ~200 bytes (ID, address, metadata)
//   - 100 nodes = ~20KB memory overhead
//   - Registry overhead depends on shard count (see ShardRegistry docs)
type server struct {
	// registry manages shard-to-node assignments for data distribution.
	// Uses consistent hashing to map keys to shards and shards to nodes.
	// Thread-safe: handles its own synchronization internally.
	registry *coordinator.ShardRegistry

	// healthMonitor periodically checks node health status
	healthMonitor *coordinator.HealthMonitor

	// meta caches the declared collections' shard tables for router to
	// resolve document operations against.
	meta *clustermeta.Metadata

	// docRouter turns one document operation into a shard RPC (or a
	// fan-out) using meta for topology.
	docRouter *router.Router

	// nodes contains all registered nodes in the cluster.
	// Nodes are identified by unique ID and include connection address.
	// Updated during registration; removed on failure detection (future).
	nodes []cluster.NodeInfo

	// mu protects concurrent access to the nodes slice.
	// Uses RWMutex to allow multiple concurrent readers for list operations
	// while ensuring exclusive access during registration/updates.
	mu sync.RWMutex
}

// newServer creates and initializes a new coordinator server instance with
// default configuration suitable for small to medium clusters.
//
// Default configuration:
//   - 4 shards: Suitable for 1-4 nodes with room for growth
//   - Empty node list: Nodes register themselves after startup
//   - Initialized shard registry: Ready for assignments
//
// The shard count determines:
//   - Data distribution granularity
//   - Maximum parallelism for operations
//   - Rebalancing flexibility when nodes join/leave
//
// Future improvements:
//   - Make shard count configurable via environment variable
//   - Support dynamic shard splitting for growing clusters
//   - Initialize with persisted state for recovery
//
// Returns:
//   - Initialized server ready to accept registrations
func newServer() *server {
	// Start with 4 shards by default
	// This provides reasonable distribution for small clusters
	// while keeping overhead low for testing
	// Get health check interval from environment (default 5 seconds)
	healthInterval := 5 * time.Second
	if envInterval := os.Getenv("HEALTH_CHECK_INTERVAL"); envInterval != "" {
		if parsed, err := time.ParseDuration(envInterval); err == nil {
			healthInterval = parsed
			log.Printf("Health check interval set to %v", healthInterval)
		}
	}

	meta := clustermeta.New()
	srv := &server{
		registry:      coordinator.NewShardRegistry(4),
		healthMonitor: coordinator.NewHealthMonitor(healthInterval),
		meta:          meta,
		docRouter:     router.New(meta, rpc.NewHTTPClient()),
	}

	// Set up callback for when nodes become unhealthy
	srv.healthMonitor.SetOnUnhealthy(func(nodeID string) {
		log.Printf("Node %s is unhealthy, triggering shard redistribution", nodeID)
		// Mark node as unhealthy but keep it in the list
		srv.markNodeUnhealthy(nodeID)
		// Redistribute the failed node's shards to healthy nodes
		srv.mu.Lock()
		defer srv.mu.Unlock()
		for _, shardID := range srv.registry.GetNodeShards(nodeID) {
			_ = srv.registry.RemoveShard(shardID)
		}
		srv.autoAssignShards()
	})

	return srv
}

// handleRegister processes node registration requests, updating the cluster
// membership and triggering shard assignment for new nodes.
//
// Endpoint: POST /register
//
// Request body:
//
//	{
//	  "node": {
//	    "id": "node-1",           // Unique node identifier
//	    "addr": "http://host:port" // Node's HTTP address
//	  }
//	}
//
// Registration behavior:
//   - New nodes: Added to cluster and assigned shards via round-robin
//   - Existing nodes: Updated in-place (for address changes)
//   - Invalid requests: Rejected with 400 Bad Request
//
// Side effects:
//   - Updates internal node list
//   - Triggers shard auto-assignment for new nodes
//   - Logs registration events
//
// Response:
//   - 204 No Content: Registration successful
//   - 400 Bad Request: Invalid JSON or missing required fields
//
// Thread safety:
//   - Acquires write lock for entire operation
//   - Auto-assignment happens within lock to ensure consistency
func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	// Parse and validate registration request
	var req cluster.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	// Validate required fields
	if req.Node.ID == "" || req.Node.Addr == "" {
		http.Error(w, "missing id/addr", http.StatusBadRequest)
		return
	}

	// Update node list with exclusive lock
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check if node already exists (re-registration)
	idx := slices.IndexFunc(s.nodes, func(n cluster.NodeInfo) bool { return n.ID == req.Node.ID })
	if idx >= 0 {
		// Update existing node (address might have changed)
		s.nodes[idx] = req.Node
	} else {
		// Add new node to cluster
		s.nodes = append(s.nodes, req.Node)
		// Auto-assign shards to new nodes (simple round-robin for now)
		// This ensures data is distributed as nodes join
		s.autoAssignShards()
	}

	// Return success with no content
	w.WriteHeader(http.StatusNoContent)
}

// markNodeUnhealthy marks a node as unhealthy in the active nodes list by ID.
// This is called when a node is detected as unhealthy.
// The node remains in the list for visibility but is marked as unhealthy.
//
// Parameters:
//   - nodeID: ID of the node to mark as unhealthy
//
// Thread-safe: Uses write lock to protect nodes slice modification.
func (s *server) markNodeUnhealthy(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Find and mark the node as unhealthy
	for i, node := range s.nodes {
		if node.ID == nodeID {
			s.nodes[i].Status = healthStatusUnhealthy
			log.Printf("Marked node %s as unhealthy in cluster", nodeID)
			return
		}
	}
}

// handleListNodes returns the list of all registered nodes in the cluster.
// providing visibility into cluster membership for monitoring and debugging.
//
// Endpoint: GET /nodes
//
// Response body:
//
//	{
//	  "nodes": [
//	    {
//	      "id": "node-1",
//	      "addr": "http://localhost:8081"
//	    },
//	    {
//	      "id": "node-2",
//	      "addr": "http://localhost:8082"
//	    }
//	  ]
//	}
//
// Use cases:
//   - Health monitoring dashboards
//   - Debugging cluster topology
//   - Client service discovery (future)
//
// Response:
//   - 200 OK: JSON array of node information
//   - Empty array if no nodes registered
//
// Thread safety:
//   - Uses read lock for concurrent access
//   - Snapshot isolation: changes during encoding won't affect output
func (s *server) handleListNodes(w http.ResponseWriter, _ *http.Request) {
	// Acquire read lock for concurrent access
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Get health status for all nodes
	allHealth := s.healthMonitor.GetAllNodeHealth()

	// Create response with nodes including their health status
	nodes := make([]cluster.NodeInfo, len(s.nodes))
	for i, node := range s.nodes {
		nodes[i] = node
		// Add health status if available, unless already marked unhealthy
		if node.Status != healthStatusUnhealthy {
			if health := allHealth[node.ID]; health != nil {
				nodes[i].Status = health.Status
				nodes[i].LastHealthCheck = health.LastCheck
			} else {
				nodes[i].Status = healthStatusUnknown
			}
		}
		// Node was explicitly marked unhealthy, preserve that status
	}

	// Encode node list as JSON response
	// Ignoring encoder error as it only fails on unmarshalable types
	if err := json.NewEncoder(w).Encode(struct {
		Nodes []cluster.NodeInfo `json:"nodes"`
	}{Nodes: nodes}); err != nil {
		log.Printf("Error encoding nodes response: %v", err)
	}
}

// handleBroadcast sends a request to all registered nodes in parallel, useful
// for cluster-wide operations like configuration updates or cache invalidation.
//
// Endpoint: POST /broadcast
//
// Request body:
//
//	{
//	  "path": "/some/endpoint",    // Target path on each node
//	  "payload": {                 // JSON payload to send
//	    "action": "clear_cache",
//	    "timestamp": 1234567890
//	  }
//	}
//
// Broadcast behavior:
//   - Sends POST request to path on all nodes, one after another
//   - One 4-second timeout shared by all nodes (later nodes get what is left)
//   - Continues even if some nodes fail
//   - Returns results for all attempts
//
// Use cases:
//   - Configuration updates
//   - Cache invalidation
//   - Triggering maintenance operations
//   - Collecting cluster-wide statistics
//
// Response body:
//
//	{
//	  "sent_to": 3,
//	  "results": [
//	    {"node_id": "node-1"},
//	    {"node_id": "node-2"},
//	    {"node_id": "node-3", "err": "connection refused"}
//	  ]
//	}
//
// Response:
//   - 200 OK: Broadcast attempted (check results for individual failures)
//   - 400 Bad Request: Invalid JSON or missing path
//
// Thread safety:
//   - Takes snapshot of node list to avoid holding lock during I/O
//   - Each node request is independent
func (s *server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	// Parse and validate broadcast request
	var req cluster.BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	// Validate path format
	if req.Path == "" || req.Path[0] != '/' {
		http.Error(w, "path must start with '/'", http.StatusBadRequest)
		return
	}

	// Take snapshot of nodes to avoid holding lock during network I/O
	s.mu.RLock()
	targets := append([]cluster.NodeInfo(nil), s.nodes...)
	s.mu.RUnlock()

	// Result tracking for each node
	type result struct {
		NodeID string `json:"node_id"`
		Err    string `json:"err,omitempty"`
	}
	out := make([]result, 0, len(targets))

	// Set timeout for all requests (not per-request)
	ctx, cancel := context.WithTimeout(r.Context(), 4*time.Second)
	defer cancel()

	// Send request to each node (sequential for simplicity)
	// Could be parallelized with goroutines for better performance
	for _, n := range targets {
		url := n.Addr + req.Path
		err := cluster.PostJSON(ctx, url, req.Payload, nil)
		res := result{NodeID: n.ID}
		if err != nil {
			res.Err = err.Error()
		}
		out = append(out, res)
	}

	// Return summary of broadcast results
	if err := json.NewEncoder(w).Encode(struct {
		Results []result `json:"results"`
		SentTo  int      `json:"sent_to"`
	}{Results: out, SentTo: len(out)}); err != nil {
		log.Printf("Error encoding broadcast results: %v", err)
	}
}

// handleDocumentRequest routes collection-declaration and document
// operations under /_db/{db}/..., replacing the node-addressed /data/
// proxy with the router's shard-resolving document paths.
//
// Paths:
//
//	POST   /_db/{db}/_collection               - declare a collection
//	POST   /_db/{db}/_api/document/{collection} - create a document
//	GET    /_db/{db}/_api/document/{collection}/{key} - read
//	DELETE /_db/{db}/_api/document/{collection}/{key} - delete
func (s *server) handleDocumentRequest(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "_db" {
		http.Error(w, "invalid path format", http.StatusBadRequest)
		return
	}
	db := parts[1]

	if len(parts) == 3 && parts[2] == "_collection" {
		s.handleDeclareCollection(w, r, db)
		return
	}

	if len(parts) >= 5 && parts[2] == "_api" && parts[3] == "document" {
		collection := parts[4]
		var key string
		if len(parts) >= 6 {
			key = strings.Join(parts[5:], "/")
		}
		switch r.Method {
		case http.MethodPost:
			if key != "" {
				http.Error(w, "key must not be present on create", http.StatusBadRequest)
				return
			}
			s.handleCreateDocument(w, r, db, collection)
		case http.MethodGet, http.MethodDelete:
			if key == "" {
				http.Error(w, "key required", http.StatusBadRequest)
				return
			}
			s.handleReadOrDeleteDocument(w, r, db, collection, key)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	http.Error(w, "invalid path format", http.StatusBadRequest)
}

// handleDeclareCollection registers a collection's name and sharding
// attributes, snapshotting the registry's current primary assignments
// into the shard table internal/router resolves document operations
// against. Declaring the same name again replaces its shard table,
// picking up any rebalancing since the last declaration.
//
// Endpoint: POST /_db/{db}/_collection
//
// Request body: {"name": "users", "shardKeys": ["_key"]}
func (s *server) handleDeclareCollection(w http.ResponseWriter, r *http.Request, db string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name      string   `json:"name"`
		ShardKeys []string `json:"shardKeys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if len(req.ShardKeys) == 0 {
		req.ShardKeys = clustermeta.DefaultShardKeys
	}

	s.mu.RLock()
	addrs := make(map[string]string, len(s.nodes))
	for _, n := range s.nodes {
		addrs[n.ID] = n.Addr
	}
	s.mu.RUnlock()

	shardToServer := make(map[string]string)
	for shardID, nodeID := range s.registry.PrimaryAssignments() {
		if addr, ok := addrs[nodeID]; ok {
			shardToServer[strconv.Itoa(shardID)] = addr
		}
	}

	ci := clustermeta.CollectionInfo{
		Name:          req.Name,
		ID:            s.meta.UniqueID(),
		ShardKeys:     req.ShardKeys,
		ShardToServer: shardToServer,
	}
	s.meta.Update(map[string]clustermeta.CollectionInfo{req.Name: ci}, db)

	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleCreateDocument(w http.ResponseWriter, r *http.Request, db, collection string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	doc, err := value.FromJSON(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key, _, err := s.docRouter.Create(r.Context(), db, collection, doc)
	if err != nil {
		writeDocError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(struct {
		Key string `json:"_key"`
	}{Key: key})
}

func (s *server) handleReadOrDeleteDocument(w http.ResponseWriter, r *http.Request, db, collection, key string) {
	resp, err := s.docRouter.ReadOrDelete(r.Context(), r.Method, db, collection, key, []string{key})
	if err != nil {
		writeDocError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.HTTPStatus)
	_, _ = w.Write(resp.Body)
}

// writeDocError maps internal/router's and internal/clustermeta's error
// taxonomy onto an HTTP status code for the client-facing boundary.
func writeDocError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch docerr.CodeOf(err) {
	case docerr.NotFound, docerr.CollectionNotFound, docerr.HttpNotFound:
		status = http.StatusNotFound
	case docerr.KeyBad, docerr.KeyUnexpected, docerr.BadParameter, docerr.MustNotSpecifyKey:
		status = http.StatusBadRequest
	case docerr.ShardGone:
		status = http.StatusServiceUnavailable
	case docerr.ClusterTimeout:
		status = http.StatusGatewayTimeout
	case docerr.ConnectionLost:
		status = http.StatusBadGateway
	case docerr.ContradictingAnswers, docerr.OutOfKeys, docerr.InvalidKeyGenerator, docerr.OutOfMemory:
		status = http.StatusInternalServerError
	}
	http.Error(w, err.Error(), status)
}

// handleShards returns current shard assignments for monitoring and debugging,
// providing visibility into how data is distributed across the cluster.
//
// Endpoint: GET /shards
//
// Response body:
//
//	{
//	  "num_shards": 4,
//	  "shards": [
//	    {
//	      "NodeID": "node-1",
//	      "IsPrimary": true,
//	      "ShardID": 0
//	    },
//	    {
//	      "NodeID": "node-2",
//	      "IsPrimary": true,
//	      "ShardID": 1
//	    }
//	  ]
//	}
//
// Use cases:
//   - Monitoring shard distribution balance
//   - Debugging data routing issues
//   - Planning manual rebalancing operations
//   - Verifying cluster topology
//
// Response:
//   - 200 OK: JSON with shard assignments
//   - 405 Method Not Allowed: Non-GET request
//
// Thread safety:
//   - Registry handles its own synchronization
//   - Assignments are copied, preventing modification
func (s *server) handleShards(w http.ResponseWriter, r *http.Request) {
	// Only GET method supported for listing
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Get current assignments from registry
	assignments := s.registry.GetAllAssignments()

	// Build response with shard metadata
	response := struct {
		Shards    []*coordinator.ShardAssignment `json:"shards"`
		NumShards int                            `json:"num_shards"`
	}{
		Shards:    assignments,
		NumShards: s.registry.NumShards(),
	}

	// Return JSON response
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding shards response: %v", err)
	}
}

// handleShardAssign manually assigns a shard to a node for administrative
// operations like rebalancing, recovery, or initial cluster setup.
//
// Endpoint: POST /shards/assign
//
// Request body:
//
//	{
//	  "shard_id": 0,        // Shard to assign (0 to num_shards-1)
//	  "node_id": "node-1",  // Target node ID
//	  "is_primary": true    // Primary or replica assignment
//	}
//
// Assignment rules:
//   - Each shard should have exactly one primary
//   - Replicas provide fault tolerance (optional)
//   - Same shard can be assigned to multiple nodes (primary + replicas)
//   - Reassignment overwrites existing assignment
//
// Use cases:
//   - Manual rebalancing after adding nodes
//   - Recovery after node failure
//   - Initial cluster bootstrapping
//   - Testing specific shard distributions
//
// Response:
//   - 204 No Content: Assignment successful
//   - 400 Bad Request: Invalid shard ID, missing fields, unregistered node, or assignment error
//   - 405 Method Not Allowed: Non-POST request
//
// Side effects:
//   - Updates shard registry immediately
//   - Does NOT notify affected nodes (future improvement)
//   - May affect ongoing operations on reassigned shards
//
// Thread safety:
//   - Registry handles synchronization internally
//   - Assignment is atomic
func (s *server) handleShardAssign(w http.ResponseWriter, r *http.Request) {
	// Only POST method supported for assignment
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse assignment request
	var req struct {
		NodeID    string `json:"node_id"`
		IsPrimary bool   `json:"is_primary"`
		ShardID   int    `json:"shard_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	// Reject assignments to nodes that have not registered
	s.mu.RLock()
	known := slices.IndexFunc(s.nodes, func(n cluster.NodeInfo) bool { return n.ID == req.NodeID }) >= 0
	s.mu.RUnlock()
	if !known {
		http.Error(w, "unknown node", http.StatusBadRequest)
		return
	}

	// Perform assignment through registry
	if err := s.registry.AssignShard(req.ShardID, req.NodeID, req.IsPrimary); err != nil {
		// Registry returns errors for invalid shard IDs or other issues
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Return success with no content
	w.WriteHeader(http.StatusNoContent)
}

// autoAssignShards automatically distributes unassigned shards among registered
// nodes using round-robin allocation for initial cluster setup and rebalancing.
//
// Assignment algorithm:
//  1. Identifies all unassigned shards
//  2. Distributes them evenly across available nodes
//  3. Uses round-robin to ensure balance
//  4. Assigns all shards as primaries (no replicas yet)
//
// When called:
//   - After new node registration
//   - During cluster initialization
//   - After a node is marked unhealthy and its shards are unassigned
//
// Behavior:
//   - Only assigns unassigned shards (doesn't move existing)
//   - Logs each assignment for audit trail
//   - No-op if no nodes registered
//   - No-op if all shards already assigned
//
// Limitations:
//   - Simple round-robin (doesn't consider node capacity)
//   - No replica creation (single point of failure)
//   - No rebalancing of existing assignments
//   - Runs on every registration (may cause churn)
//
// Future improvements:
//   - Consider node capacity and load
//   - Create replicas for fault tolerance
//   - Implement proper rebalancing strategy
//   - Batch assignments after multiple registrations
//
// Thread safety:
//   - Must be called with s.mu held (by handleRegister and the unhealthy-node callback)
//   - Registry operations are thread-safe internally
func (s *server) autoAssignShards() {
	// Build list of healthy nodes only
	var healthyNodes []cluster.NodeInfo
	for _, node := range s.nodes {
		if node.Status != healthStatusUnhealthy {
			healthyNodes = append(healthyNodes, node)
		}
	}

	// No-op if no healthy nodes to assign to
	if len(healthyNodes) == 0 {
		log.Printf("No healthy nodes available for shard assignment")
		return
	}

	// Get all current assignments to identify gaps
	assignments := s.registry.GetAllAssignments()
	assignedShards := make(map[int]bool)
	for _, a := range assignments {
		assignedShards[a.ShardID] = true
	}

	// Assign any unassigned shards using round-robin across healthy nodes
	nodeIndex := 0
	for shardID := 0; shardID < s.registry.NumShards(); shardID++ {
		if !assignedShards[shardID] {
			// Select next healthy node in round-robin fashion
			nodeID := healthyNodes[nodeIndex].ID
			// Assign as primary (no replicas in current implementation)
			if err := s.registry.AssignShard(shardID, nodeID, true); err != nil {
				log.Printf("Error assigning shard %d to node %s: %v", shardID, nodeID, err)
			}
			log.Printf("Auto-assigned shard %d to node %s", shardID, nodeID)
			// Move to next healthy node for even distribution
			nodeIndex = (nodeIndex + 1) % len(healthyNodes)
		}
	}
}

// getenv retrieves an environment variable with a default fallback value,
// simplifying configuration management for deployment flexibility.
//
// The function checks if the environment variable is set and non-empty,
// returning its value if so, otherwise returning the default value.
//
// Parameters:
//   - k: Environment variable name to look up
//   - def: Default value if variable is unset or empty
//
// Returns:
//   - Environment variable value if set and non-empty
//   - Default value otherwise
//
// Example:
//
//	addr := getenv("COORDINATOR_ADDR", ":8080")
//	// Returns $COORDINATOR_ADDR if set, otherwise ":8080"
func getenv(k, def string) string {
	// Check environment variable
	if v := os.Getenv(k); v != "" {
		return v
	}
	// Return default if unset or empty
	return def
}
