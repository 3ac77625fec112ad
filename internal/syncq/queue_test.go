package syncq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justicebus/offlinesync/internal/common"
	"github.com/justicebus/offlinesync/internal/logging"
	"github.com/justicebus/offlinesync/internal/store"
)

type call struct {
	method  string
	url     string
	body    string
	headers map[string]string
}

// fakeTransport records calls and answers via respond; nil respond means
// every call succeeds.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []call
	respond func(c call) error
	delay   time.Duration
}

func (f *fakeTransport) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) ([]byte, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	c := call{method: method, url: url, body: string(body), headers: headers}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.respond != nil {
		return nil, f.respond(c)
	}
	return []byte(`{}`), nil
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func setupQueue(t *testing.T, transport *fakeTransport, opts ...Option) (*Queue, store.Store) {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return New(st, transport, logging.NewDiscard(), opts...), st
}

func TestEnqueueThenDrain_EmptiesQueue(t *testing.T) {
	transport := &fakeTransport{}
	q, _ := setupQueue(t, transport)
	ctx := context.Background()

	item, err := q.Enqueue(ctx, "forms", json.RawMessage(`{"name":"ada"}`), "/api/intake", "")
	require.NoError(t, err)
	assert.Equal(t, "POST", item.Method) // default verb
	assert.NotEmpty(t, item.ID)
	assert.NotEmpty(t, item.IdempotencyKey)

	res, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Attempted: 1, Replayed: 1}, res)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.Equal(t, 1, transport.callCount())
	sent := transport.calls[0]
	assert.Equal(t, "/api/intake", sent.url)
	assert.JSONEq(t, `{"name":"ada"}`, sent.body)
	assert.Equal(t, item.IdempotencyKey, sent.headers[common.IdempotencyKeyHeaderName])
}

func TestDrain_EmptyQueueIssuesNoNetworkCalls(t *testing.T) {
	transport := &fakeTransport{}
	q, _ := setupQueue(t, transport)

	res, err := q.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DrainResult{}, res)
	assert.Zero(t, transport.callCount())
}

func TestDrain_FailedItemStaysQueuedUntilNextPass(t *testing.T) {
	failing := true
	transport := &fakeTransport{
		respond: func(c call) error {
			if failing && c.url == "/api/two" {
				return common.ErrReplayFailed
			}
			return nil
		},
	}
	q, _ := setupQueue(t, transport)
	ctx := context.Background()

	for _, url := range []string{"/api/one", "/api/two", "/api/three"} {
		_, err := q.Enqueue(ctx, "forms", json.RawMessage(`{}`), url, "")
		require.NoError(t, err)
	}

	res, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Attempted: 3, Replayed: 2, Failed: 1}, res)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "/api/two", pending[0].APIPath)
	assert.False(t, pending[0].Synced)

	// network recovers, second pass empties the queue
	failing = false
	res, err = q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Attempted: 1, Replayed: 1}, res)

	pending, err = q.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrain_ProcessesItemsInInsertionOrder(t *testing.T) {
	transport := &fakeTransport{}
	q, _ := setupQueue(t, transport)
	ctx := context.Background()

	urls := []string{"/a", "/b", "/c", "/d"}
	for _, u := range urls {
		_, err := q.Enqueue(ctx, "forms", json.RawMessage(`{}`), u, "")
		require.NoError(t, err)
	}

	_, err := q.Drain(ctx)
	require.NoError(t, err)

	require.Equal(t, len(urls), transport.callCount())
	for i, u := range urls {
		assert.Equal(t, u, transport.calls[i].url)
	}
}

func TestDrain_ConcurrentTriggersReplayOnce(t *testing.T) {
	transport := &fakeTransport{delay: 50 * time.Millisecond}
	q, _ := setupQueue(t, transport)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "forms", json.RawMessage(`{}`), "/api/slow", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Drain(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, transport.callCount(), "concurrent drains must coalesce into one replay")
}

func TestDrain_LeftoverSyncedItemsAreSweptNotReplayed(t *testing.T) {
	transport := &fakeTransport{}
	q, st := setupQueue(t, transport)
	ctx := context.Background()

	// simulate an interrupted earlier pass that marked an item synced but
	// did not delete it
	value, err := json.Marshal(map[string]any{
		"storeType": "forms",
		"data":      map[string]any{},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"synced":    true,
		"apiPath":   "/api/already-done",
		"method":    "POST",
	})
	require.NoError(t, err)
	_, err = st.Put(ctx, store.PartitionSyncQueue, "", value)
	require.NoError(t, err)

	res, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{}, res)
	assert.Zero(t, transport.callCount())

	recs, err := st.GetAll(ctx, store.PartitionSyncQueue)
	require.NoError(t, err)
	assert.Empty(t, recs, "synced leftovers are deleted lazily")
}

func TestDrain_RetryPolicyRetriesWithinPass(t *testing.T) {
	attempts := 0
	transport := &fakeTransport{
		respond: func(c call) error {
			attempts++
			if attempts == 1 {
				return errors.New("flaky")
			}
			return nil
		},
	}
	q, _ := setupQueue(t, transport, WithRetryPolicy(func() retry.Backoff {
		return retry.WithMaxRetries(2, retry.NewConstant(time.Millisecond))
	}))
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "forms", json.RawMessage(`{}`), "/api/flaky", "")
	require.NoError(t, err)

	res, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Attempted: 1, Replayed: 1}, res)
	assert.Equal(t, 2, attempts)
}
