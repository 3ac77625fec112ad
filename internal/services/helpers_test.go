package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/justicebus/offlinesync/internal/common"
	"github.com/justicebus/offlinesync/internal/logging"
	"github.com/justicebus/offlinesync/internal/store"
	"github.com/justicebus/offlinesync/internal/syncq"
)

type call struct {
	method string
	url    string
	body   string
}

// fakeTransport records calls; respond decides the outcome (nil = success).
type fakeTransport struct {
	mu      sync.Mutex
	calls   []call
	respond func(c call) ([]byte, error)
}

func (f *fakeTransport) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) ([]byte, error) {
	c := call{method: method, url: url, body: string(body)}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(c)
	}
	return []byte(`{}`), nil
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// brokenStore rejects every operation, standing in for an unavailable
// primary tier.
type brokenStore struct{}

func (brokenStore) Put(ctx context.Context, partition, key string, value []byte) (string, error) {
	return "", common.ErrStoreUnavailable
}

func (brokenStore) Get(ctx context.Context, partition, key string) ([]byte, error) {
	return nil, common.ErrStoreUnavailable
}

func (brokenStore) GetAll(ctx context.Context, partition string) ([]store.Record, error) {
	return nil, common.ErrStoreUnavailable
}

func (brokenStore) Delete(ctx context.Context, partition, key string) error {
	return common.ErrStoreUnavailable
}

func (brokenStore) Close() error { return nil }

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return st
}

func newTestQueue(t *testing.T, st store.Store, transport *fakeTransport) *syncq.Queue {
	t.Helper()
	return syncq.New(st, transport, logging.NewDiscard())
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
