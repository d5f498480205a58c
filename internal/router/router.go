// Package router implements the cluster coordinator paths: it turns one
// logical document operation into either a single targeted shard call or
// a scatter-gather across every shard, and reconciles the shards'
// answers into one outcome (spec §4.3).
//
// Grounded directly on arangod/Cluster/ClusterMethods.cpp's
// createDocumentOnCoordinator and deleteDocumentOnCoordinator: the shard
// resolution, the synchronous create, the fan-out delete and its
// zero/one/many reply reconciliation all mirror that code's control
// flow. One deliberate deviation: the original allocates a fresh headers
// map per shard on the async fan-out path and leaks it past the
// request's lifetime; this implementation builds one shared, immutable
// header set for the whole fan-out instead.
package router

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/dreamware/docshaper/internal/clustermeta"
	"github.com/dreamware/docshaper/internal/docerr"
	"github.com/dreamware/docshaper/internal/keygen"
	"github.com/dreamware/docshaper/internal/rpc"
	"github.com/dreamware/docshaper/internal/value"
)

// DefaultDeadline is the 60-second shard-call deadline spec §4.3/§5 names
// as the default for create, and that this router also applies to
// delete/read calls absent a caller-supplied deadline.
const DefaultDeadline = 60 * time.Second

// Router maps document operations to shard RPCs using a cluster metadata
// cache for topology and an RPC client façade for transport. Its only
// mutable state is the per-collection key generators Create mints _key
// values from before a shard is ever chosen: default sharding hashes
// _key, so the key must exist before routing, not after (spec §4.3
// "Create").
type Router struct {
	meta   *clustermeta.Metadata
	client rpc.Client

	genMu sync.Mutex
	gens  map[string]keygen.Generator
	ticks map[string]uint64
}

// New returns a Router backed by meta for topology and client for
// transport.
func New(meta *clustermeta.Metadata, client rpc.Client) *Router {
	return &Router{
		meta:   meta,
		client: client,
		gens:   make(map[string]keygen.Generator),
		ticks:  make(map[string]uint64),
	}
}

// mintKey generates (or validates, if userKey is non-empty) the final
// _key for a create against (db, collection), lazily creating that
// collection's generator on first use. The whole operation runs under
// genMu, matching spec §5's requirement that a generator's mutation be
// serialized by its owning collection's write lock.
func (r *Router) mintKey(db, collection, userKey string) (string, error) {
	id := db + "/" + collection

	r.genMu.Lock()
	defer r.genMu.Unlock()

	gen, ok := r.gens[id]
	if !ok {
		var err error
		gen, err = keygen.New(keygen.Options{Type: "traditional"})
		if err != nil {
			// Options{Type: "traditional"} is always valid.
			panic(err)
		}
		r.gens[id] = gen
	}

	r.ticks[id]++
	return gen.Generate(r.ticks[id], userKey, false)
}

// ResolveShard hashes the concatenation of values (the document's values
// for the collection's declared sharding attributes, in declared order)
// and looks up the resulting shard in ci's shard table (spec §4.3).
// usesDefault reports whether ci shards on exactly ["_key"].
func ResolveShard(ci clustermeta.CollectionInfo, values []string) (shardID string, usesDefault bool) {
	usesDefault = ci.UsesDefaultShardKeys()
	if len(ci.ShardToServer) == 0 {
		return "", usesDefault
	}

	h := fnv.New64a()
	for _, v := range values {
		_, _ = h.Write([]byte(v))
	}
	sum := h.Sum64()

	shardIDs := make([]string, 0, len(ci.ShardToServer))
	for id := range ci.ShardToServer {
		shardIDs = append(shardIDs, id)
	}
	sort.Strings(shardIDs)

	idx := sum % uint64(len(shardIDs))
	return shardIDs[idx], usesDefault
}

// shardTarget returns the server address backing shardID, or "" if the
// shard is unknown (the caller treats that as ShardGone).
func shardTarget(ci clustermeta.CollectionInfo, shardID string) string {
	return ci.ShardToServer[shardID]
}

// Create mints a _key from this collection's key generator when doc
// does not already carry one, resolves the shard from the document's
// declared sharding-attribute values, and issues a synchronous POST with
// a 60-second deadline (spec §4.3 "Create"). It returns the final _key.
func (r *Router) Create(ctx context.Context, db, collection string, doc value.Value) (string, rpc.Response, error) {
	ci, err := r.meta.GetCollection(db, collection)
	if err != nil {
		return "", rpc.Response{}, err
	}
	if doc.Kind != value.KindObject {
		return "", rpc.Response{}, docerr.New(docerr.BadParameter, "document body must be an object")
	}

	userKey, hasUserKey := "", false
	if k, ok := doc.Object.Get("_key"); ok && k.Kind == value.KindString {
		userKey, hasUserKey = k.Str, true
	}
	if hasUserKey && !ci.UsesDefaultShardKeys() {
		return "", rpc.Response{}, docerr.New(docerr.MustNotSpecifyKey, "collection %s shards on %v; caller must not supply _key", collection, ci.ShardKeys)
	}

	key, err := r.mintKey(db, collection, userKey)
	if err != nil {
		return "", rpc.Response{}, err
	}
	doc.Object.Set("_key", value.String(key))

	shardKeyValues := make([]string, 0, len(ci.ShardKeys))
	for _, attr := range ci.ShardKeys {
		v, _ := doc.Object.Get(attr)
		shardKeyValues = append(shardKeyValues, stringifyShardKey(v))
	}

	shardID, _ := ResolveShard(ci, shardKeyValues)
	if shardID == "" {
		return "", rpc.Response{}, docerr.New(docerr.ShardGone, "no shard resolved for collection %s", collection)
	}
	target := shardTarget(ci, shardID)

	body, err := value.ToJSON(doc)
	if err != nil {
		return "", rpc.Response{}, docerr.New(docerr.BadParameter, "encoding document: %v", err)
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, DefaultDeadline)
	defer cancel()

	path := fmt.Sprintf("/_db/%s/_api/shard/%s/%s", db, shardID, collection)
	resp := r.client.SyncRequest(deadlineCtx, target, http.MethodPost, path, body, nil)
	return key, resp, classify(resp)
}

// stringifyShardKey renders a document field as the string ResolveShard
// hashes. Missing fields (Kind == KindNull, absent attribute) hash as
// the empty string, matching a null sharding-attribute value.
func stringifyShardKey(v value.Value) string {
	switch v.Kind {
	case value.KindString:
		return v.Str
	case value.KindNumber:
		return fmt.Sprintf("%g", v.Num)
	case value.KindBool:
		return fmt.Sprintf("%t", v.Bool)
	default:
		return ""
	}
}

// ReadOrDelete dispatches a read or delete by key. When ci uses the
// default sharding attributes it takes the fast path: one synchronous
// call to the resolved shard. Otherwise it fans the request out to
// every shard under one coordinator transaction id and reconciles the
// replies per spec §4.3: zero 2xx replies is a canonical NotFound,
// exactly one is forwarded verbatim, more than one is
// ContradictingAnswers.
func (r *Router) ReadOrDelete(ctx context.Context, method, db, collection string, key string, shardKeyValues []string) (rpc.Response, error) {
	ci, err := r.meta.GetCollection(db, collection)
	if err != nil {
		return rpc.Response{}, err
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, DefaultDeadline)
	defer cancel()

	if ci.UsesDefaultShardKeys() {
		shardID, _ := ResolveShard(ci, shardKeyValues)
		if shardID == "" {
			return rpc.Response{}, docerr.New(docerr.ShardGone, "no shard resolved for collection %s", collection)
		}
		target := shardTarget(ci, shardID)
		path := fmt.Sprintf("/_db/%s/_api/shard/%s/%s/%s", db, shardID, collection, key)
		resp := r.client.SyncRequest(deadlineCtx, target, method, path, nil, nil)
		return resp, classify(resp)
	}

	return r.fanOut(deadlineCtx, method, db, collection, key, ci)
}

func (r *Router) fanOut(ctx context.Context, method, db, collection, key string, ci clustermeta.CollectionInfo) (rpc.Response, error) {
	txn := r.meta.NewTransactionID()

	shardIDs := make([]string, 0, len(ci.ShardToServer))
	for id := range ci.ShardToServer {
		shardIDs = append(shardIDs, id)
	}
	sort.Strings(shardIDs)

	headers := http.Header{}
	targets := make([]string, 0, len(shardIDs))
	for _, shardID := range shardIDs {
		target := ci.ShardToServer[shardID]
		targets = append(targets, target)
		path := fmt.Sprintf("/_db/%s/_api/shard/%s/%s/%s", db, shardID, collection, key)
		if err := r.client.AsyncRequest(ctx, txn, target, method, path, nil, headers); err != nil {
			return rpc.Response{}, docerr.New(docerr.ConnectionLost, "dispatching to shard %s: %v", shardID, err)
		}
	}

	var successes []rpc.Response
	var lastFailure rpc.Response
	haveFailure := false

	for range targets {
		resp := r.client.Wait(ctx, txn, targets)
		switch resp.Status {
		case rpc.Timeout:
			return rpc.Response{}, docerr.New(docerr.ClusterTimeout, "shard reply for %s/%s timed out", collection, key)
		case rpc.Error:
			if resp.HTTPStatus == 0 {
				return rpc.Response{}, docerr.New(docerr.ConnectionLost, "lost connection awaiting shard reply for %s/%s", collection, key)
			}
			lastFailure = resp
			haveFailure = true
		case rpc.Received:
			if resp.HTTPStatus >= 200 && resp.HTTPStatus < 300 {
				successes = append(successes, resp)
			} else {
				lastFailure = resp
				haveFailure = true
			}
		}
	}

	switch len(successes) {
	case 0:
		if haveFailure {
			return lastFailure, docerr.New(docerr.HttpNotFound, "no shard reported success for %s/%s", collection, key)
		}
		return rpc.Response{}, docerr.New(docerr.HttpNotFound, "no shard reported success for %s/%s", collection, key)
	case 1:
		return successes[0], nil
	default:
		return rpc.Response{}, docerr.New(docerr.ContradictingAnswers, "%d shards answered success for %s/%s", len(successes), collection, key)
	}
}

// classify maps a raw rpc.Response into the router's failure taxonomy
// (spec §4.3 "Failure classification of a shard call"). A Received reply
// with a non-2xx status is not an error here: the caller forwards the
// shard's body and status verbatim.
func classify(resp rpc.Response) error {
	switch resp.Status {
	case rpc.Timeout:
		return docerr.New(docerr.ClusterTimeout, "shard call timed out")
	case rpc.Error:
		if resp.HTTPStatus == 0 {
			return docerr.New(docerr.ConnectionLost, "connection lost before a complete response: %v", resp.Err)
		}
		return nil
	default:
		return nil
	}
}
