// Package cluster holds the wire types and HTTP helper shared by every
// node-to-coordinator interaction: registration, broadcast, and the node
// roster the coordinator's health monitor and shard registry both read.
//
// It does not resolve documents to shards or dial shard servers directly
// — that is internal/rpc's job, reached through internal/router. cluster
// only carries the membership and control-plane traffic: a node's
// RegisterRequest on startup, and the coordinator's BroadcastRequest,
// used by its /broadcast admin endpoint to push an arbitrary payload to
// every registered node.
//
// PostJSON is the one function in the package: marshal, POST, decode.
// Nothing here retries or backs off; callers that need resilience (the
// node's registration loop, the coordinator's broadcast fan-out) handle
// it themselves.
package cluster
