package router

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/dreamware/docshaper/internal/clustermeta"
	"github.com/dreamware/docshaper/internal/docerr"
	"github.com/dreamware/docshaper/internal/rpc"
	"github.com/dreamware/docshaper/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docWithKey(key, region string) value.Value {
	o := value.NewObject()
	if key != "" {
		o.Set("_key", value.String(key))
	}
	if region != "" {
		o.Set("region", value.String(region))
	}
	return value.ObjectValue(o)
}

// fakeClient is a hand-rolled rpc.Client stand-in: responses are
// programmed per target, and AsyncRequest delivers straight into a
// per-transaction queue so Wait can drain it without any real network
// hop.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]rpc.Response
	pending   map[uint64][]rpc.Response
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		responses: make(map[string]rpc.Response),
		pending:   make(map[uint64][]rpc.Response),
	}
}

func (f *fakeClient) set(target string, resp rpc.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[target] = resp
}

func (f *fakeClient) SyncRequest(_ context.Context, target, _, _ string, _ []byte, _ http.Header) rpc.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.responses[target]
}

func (f *fakeClient) AsyncRequest(_ context.Context, txn uint64, target, _, _ string, _ []byte, _ http.Header) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[txn] = append(f.pending[txn], f.responses[target])
	return nil
}

func (f *fakeClient) Wait(_ context.Context, txn uint64, _ []string) rpc.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.pending[txn]
	if len(q) == 0 {
		return rpc.Response{Status: rpc.Timeout}
	}
	f.pending[txn] = q[1:]
	return q[0]
}

var _ rpc.Client = (*fakeClient)(nil)

func twoShardCollection() clustermeta.CollectionInfo {
	return clustermeta.CollectionInfo{
		Name:          "users",
		ID:            1,
		ShardKeys:     []string{"_key"},
		ShardToServer: map[string]string{"s1": "node-1", "s2": "node-2"},
	}
}

func TestResolveShardUsesDefault(t *testing.T) {
	shardID, usesDefault := ResolveShard(twoShardCollection(), []string{"abc"})
	assert.True(t, usesDefault)
	assert.Contains(t, []string{"s1", "s2"}, shardID)
}

func TestResolveShardDeterministic(t *testing.T) {
	ci := twoShardCollection()
	a, _ := ResolveShard(ci, []string{"same-key"})
	b, _ := ResolveShard(ci, []string{"same-key"})
	assert.Equal(t, a, b)
}

func TestResolveShardNonDefaultAttributes(t *testing.T) {
	ci := twoShardCollection()
	ci.ShardKeys = []string{"region"}
	_, usesDefault := ResolveShard(ci, []string{"eu"})
	assert.False(t, usesDefault)
}

func TestResolveShardEmptyTableIsShardGone(t *testing.T) {
	ci := clustermeta.CollectionInfo{Name: "empty"}
	shardID, _ := ResolveShard(ci, []string{"x"})
	assert.Equal(t, "", shardID)
}

func TestCreateMustNotSpecifyKeyOnNonDefaultSharding(t *testing.T) {
	meta := clustermeta.New()
	ci := twoShardCollection()
	ci.ShardKeys = []string{"region"}
	meta.Update(map[string]clustermeta.CollectionInfo{"users": ci}, "_system")

	r := New(meta, newFakeClient())
	_, _, err := r.Create(context.Background(), "_system", "users", docWithKey("eu-supplied", ""))
	require.Error(t, err)
	assert.Equal(t, docerr.MustNotSpecifyKey, docerr.CodeOf(err))
}

func TestCreateSucceeds(t *testing.T) {
	meta := clustermeta.New()
	meta.Update(map[string]clustermeta.CollectionInfo{"users": twoShardCollection()}, "_system")

	client := newFakeClient()
	client.set("node-1", rpc.Response{Status: rpc.Received, HTTPStatus: http.StatusCreated})
	client.set("node-2", rpc.Response{Status: rpc.Received, HTTPStatus: http.StatusCreated})

	r := New(meta, client)
	key, resp, err := r.Create(context.Background(), "_system", "users", docWithKey("", ""))
	require.NoError(t, err)
	assert.NotEmpty(t, key)
	assert.Equal(t, http.StatusCreated, resp.HTTPStatus)
}

func TestCreateMintsKeyWhenAbsent(t *testing.T) {
	meta := clustermeta.New()
	meta.Update(map[string]clustermeta.CollectionInfo{"users": twoShardCollection()}, "_system")

	client := newFakeClient()
	client.set("node-1", rpc.Response{Status: rpc.Received, HTTPStatus: http.StatusCreated})
	client.set("node-2", rpc.Response{Status: rpc.Received, HTTPStatus: http.StatusCreated})

	r := New(meta, client)
	key1, _, err := r.Create(context.Background(), "_system", "users", docWithKey("", ""))
	require.NoError(t, err)
	key2, _, err := r.Create(context.Background(), "_system", "users", docWithKey("", ""))
	require.NoError(t, err)
	assert.NotEqual(t, key1, key2)
}

func TestCreateUnknownCollection(t *testing.T) {
	meta := clustermeta.New()
	r := New(meta, newFakeClient())
	_, _, err := r.Create(context.Background(), "_system", "ghost", docWithKey("", ""))
	require.Error(t, err)
	assert.Equal(t, docerr.CollectionNotFound, docerr.CodeOf(err))
}

func TestReadOrDeleteFastPathForwardsNotFound(t *testing.T) {
	meta := clustermeta.New()
	meta.Update(map[string]clustermeta.CollectionInfo{"users": twoShardCollection()}, "_system")

	client := newFakeClient()
	client.set("node-1", rpc.Response{Status: rpc.Received, HTTPStatus: http.StatusNotFound, Body: []byte(`{"error":true}`)})
	client.set("node-2", rpc.Response{Status: rpc.Received, HTTPStatus: http.StatusNotFound, Body: []byte(`{"error":true}`)})

	r := New(meta, client)
	resp, err := r.ReadOrDelete(context.Background(), http.MethodDelete, "_system", "users", "abc", []string{"abc"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.HTTPStatus)
}

func TestReadOrDeleteFanOutZeroSuccessesIsHttpNotFound(t *testing.T) {
	meta := clustermeta.New()
	ci := twoShardCollection()
	ci.ShardKeys = []string{"region"}
	meta.Update(map[string]clustermeta.CollectionInfo{"users": ci}, "_system")

	client := newFakeClient()
	client.set("node-1", rpc.Response{Status: rpc.Received, HTTPStatus: http.StatusNotFound})
	client.set("node-2", rpc.Response{Status: rpc.Received, HTTPStatus: http.StatusNotFound})

	r := New(meta, client)
	_, err := r.ReadOrDelete(context.Background(), http.MethodDelete, "_system", "users", "unknown", nil)
	require.Error(t, err)
	assert.Equal(t, docerr.HttpNotFound, docerr.CodeOf(err))
}

func TestReadOrDeleteFanOutOneSuccessForwards(t *testing.T) {
	meta := clustermeta.New()
	ci := twoShardCollection()
	ci.ShardKeys = []string{"region"}
	meta.Update(map[string]clustermeta.CollectionInfo{"users": ci}, "_system")

	client := newFakeClient()
	client.set("node-1", rpc.Response{Status: rpc.Received, HTTPStatus: http.StatusOK, Body: []byte(`{"deleted":true}`)})
	client.set("node-2", rpc.Response{Status: rpc.Received, HTTPStatus: http.StatusNotFound})

	r := New(meta, client)
	resp, err := r.ReadOrDelete(context.Background(), http.MethodDelete, "_system", "users", "abc", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.HTTPStatus)
}

func TestReadOrDeleteFanOutContradictingAnswers(t *testing.T) {
	meta := clustermeta.New()
	ci := twoShardCollection()
	ci.ShardKeys = []string{"region"}
	meta.Update(map[string]clustermeta.CollectionInfo{"users": ci}, "_system")

	client := newFakeClient()
	client.set("node-1", rpc.Response{Status: rpc.Received, HTTPStatus: http.StatusOK})
	client.set("node-2", rpc.Response{Status: rpc.Received, HTTPStatus: http.StatusOK})

	r := New(meta, client)
	_, err := r.ReadOrDelete(context.Background(), http.MethodDelete, "_system", "users", "abc", nil)
	require.Error(t, err)
	assert.Equal(t, docerr.ContradictingAnswers, docerr.CodeOf(err))
}

func TestReadOrDeleteShardGone(t *testing.T) {
	meta := clustermeta.New()
	meta.Update(map[string]clustermeta.CollectionInfo{"ghostly": {Name: "ghostly", ShardKeys: []string{"_key"}}}, "_system")

	r := New(meta, newFakeClient())
	_, err := r.ReadOrDelete(context.Background(), http.MethodGet, "_system", "ghostly", "abc", []string{"abc"})
	require.Error(t, err)
	assert.Equal(t, docerr.ShardGone, docerr.CodeOf(err))
}

func TestClassifyTimeoutAndConnectionLost(t *testing.T) {
	assert.Equal(t, docerr.ClusterTimeout, docerr.CodeOf(classify(rpc.Response{Status: rpc.Timeout})))
	assert.Equal(t, docerr.ConnectionLost, docerr.CodeOf(classify(rpc.Response{Status: rpc.Error})))
	assert.NoError(t, classify(rpc.Response{Status: rpc.Error, HTTPStatus: http.StatusBadRequest}))
	assert.NoError(t, classify(rpc.Response{Status: rpc.Received, HTTPStatus: http.StatusNotFound}))
}
