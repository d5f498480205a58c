package rpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targetOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestHTTPClientSyncRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shard/0/documents/abc", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewHTTPClient()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp := c.SyncRequest(ctx, targetOf(srv), http.MethodPost, "/shard/0/documents/abc", nil, nil)
	require.Equal(t, Received, resp.Status)
	assert.Equal(t, http.StatusCreated, resp.HTTPStatus)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestHTTPClientSyncRequestConnectionRefused(t *testing.T) {
	c := NewHTTPClient()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	resp := c.SyncRequest(ctx, "127.0.0.1:1", http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, Error, resp.Status)
	assert.Error(t, resp.Err)
}

func TestHTTPClientAsyncRequestThenWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient()
	const txn = uint64(42)

	err := c.AsyncRequest(context.Background(), txn, targetOf(srv), http.MethodDelete, "/shard/1/documents/k", nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp := c.Wait(ctx, txn, nil)
	assert.Equal(t, Received, resp.Status)
	assert.Equal(t, http.StatusOK, resp.HTTPStatus)
}

func TestHTTPClientWaitTimesOutWithNoReply(t *testing.T) {
	c := NewHTTPClient()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	resp := c.Wait(ctx, 9999, nil)
	assert.Equal(t, Timeout, resp.Status)
}

func TestHTTPClientWaitFiltersByShard(t *testing.T) {
	srvA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srvA.Close()
	srvB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srvB.Close()

	c := NewHTTPClient()
	const txn = uint64(7)
	require.NoError(t, c.AsyncRequest(context.Background(), txn, targetOf(srvA), http.MethodGet, "/x", nil, nil))
	require.NoError(t, c.AsyncRequest(context.Background(), txn, targetOf(srvB), http.MethodGet, "/x", nil, nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp := c.Wait(ctx, txn, []string{targetOf(srvB)})
	assert.Equal(t, http.StatusConflict, resp.HTTPStatus)
}
