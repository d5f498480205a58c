// Package rpc is the client façade the router uses to talk to shard
// servers (spec §4.4). It exposes three operations — a synchronous
// request/response call, an asynchronous fire-and-correlate call keyed by
// a coordinator transaction id, and a wait that blocks for the next reply
// belonging to that transaction — so the router can implement both its
// single-shard fast path and its multi-shard fan-out against the same
// interface.
//
// Cancellation is deadline-only: every call takes a context.Context and
// the façade never retries or backs off on its own, matching spec §4.4's
// "no retry policy, no circuit breaker — the caller decides".
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Status classifies how a Response came to be, independent of the HTTP
// status code the shard itself returned (spec §4.4).
type Status int

const (
	// Received means the shard answered before the deadline; HTTPStatus
	// and Body reflect exactly what it sent.
	Received Status = iota
	// Timeout means the deadline elapsed with no reply.
	Timeout
	// Error means the transport failed outright (connection refused,
	// DNS failure, reset) rather than timing out.
	Error
)

func (s Status) String() string {
	switch s {
	case Received:
		return "received"
	case Timeout:
		return "timeout"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Response is the façade's uniform answer shape, whether it came back
// synchronously or via Wait.
type Response struct {
	Header     http.Header
	Err        error
	Body       []byte
	HTTPStatus int
	Status     Status
}

// Client is the RPC client façade contract (spec §4.4). Implementations
// must be safe for concurrent use.
type Client interface {
	// SyncRequest sends one request to target and blocks for its
	// answer or the context's deadline, whichever comes first.
	SyncRequest(ctx context.Context, target, method, path string, body []byte, headers http.Header) Response

	// AsyncRequest sends one request to target tagged with txn, and
	// returns as soon as the request is dispatched — it does not wait
	// for the shard's answer. The answer surfaces from a later Wait
	// call against the same txn.
	AsyncRequest(ctx context.Context, txn uint64, target, method, path string, body []byte, headers http.Header) error

	// Wait blocks until a reply belonging to txn arrives from one of
	// the shards named in shardFilter (or any shard, if shardFilter is
	// empty) or the context's deadline elapses, whichever is first.
	// Each call to Wait consumes exactly one pending reply.
	Wait(ctx context.Context, txn uint64, shardFilter []string) Response
}

// httpClient is the shared transport for every outbound shard call,
// mirroring the pooled-client convention used elsewhere in this module's
// cluster-facing packages: one client, reused, never allocated per call.
var httpClient = &http.Client{}

// HTTPClient is the real, network-backed implementation of Client. It
// dials shard addresses directly over HTTP and correlates asynchronous
// replies in an in-process pending-reply table keyed by transaction id.
type HTTPClient struct {
	mu      sync.Mutex
	pending map[uint64][]shardReply
	signal  map[uint64]chan struct{}
}

type shardReply struct {
	resp Response
	from string
}

// NewHTTPClient returns a ready-to-use HTTPClient.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		pending: make(map[uint64][]shardReply),
		signal:  make(map[uint64]chan struct{}),
	}
}

func (c *HTTPClient) SyncRequest(ctx context.Context, target, method, path string, body []byte, headers http.Header) Response {
	return doHTTP(ctx, target, method, path, body, headers)
}

func (c *HTTPClient) AsyncRequest(ctx context.Context, txn uint64, target, method, path string, body []byte, headers http.Header) error {
	go func() {
		resp := doHTTP(ctx, target, method, path, body, headers)
		c.deliver(txn, target, resp)
	}()
	return nil
}

func (c *HTTPClient) deliver(txn uint64, from string, resp Response) {
	c.mu.Lock()
	c.pending[txn] = append(c.pending[txn], shardReply{from: from, resp: resp})
	ch, ok := c.signal[txn]
	c.mu.Unlock()
	if ok {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (c *HTTPClient) Wait(ctx context.Context, txn uint64, shardFilter []string) Response {
	wants := func(from string) bool {
		if len(shardFilter) == 0 {
			return true
		}
		for _, s := range shardFilter {
			if s == from {
				return true
			}
		}
		return false
	}

	for {
		c.mu.Lock()
		replies := c.pending[txn]
		for i, r := range replies {
			if wants(r.from) {
				c.pending[txn] = append(replies[:i], replies[i+1:]...)
				c.mu.Unlock()
				return r.resp
			}
		}
		ch, ok := c.signal[txn]
		if !ok {
			ch = make(chan struct{}, 1)
			c.signal[txn] = ch
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return Response{Status: Timeout, Err: ctx.Err()}
		case <-ch:
		}
	}
}

func doHTTP(ctx context.Context, target, method, path string, body []byte, headers http.Header) Response {
	url := fmt.Sprintf("http://%s%s", target, path)
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		url = target + path
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return Response{Status: Error, Err: err}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Response{Status: Timeout, Err: err}
		}
		return Response{Status: Error, Err: err}
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return Response{Status: Error, Err: err}
	}

	return Response{
		Status:     Received,
		HTTPStatus: resp.StatusCode,
		Header:     resp.Header,
		Body:       buf.Bytes(),
	}
}

// EncodeJSON is a small convenience used by callers building request
// bodies for SyncRequest/AsyncRequest.
func EncodeJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

var _ Client = (*HTTPClient)(nil)
