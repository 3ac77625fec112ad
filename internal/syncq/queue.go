// Package syncq implements the sync queue and its drainer. Feature adapters
// enqueue "replay later" operations while offline; the connectivity watcher
// triggers Drain, which replays each unsynced item in insertion order and
// deletes it on success. Failures stay queued for the next trigger.
package syncq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/justicebus/offlinesync/internal/common"
	"github.com/justicebus/offlinesync/internal/logging"
	"github.com/justicebus/offlinesync/internal/models"
	"github.com/justicebus/offlinesync/internal/netx"
	"github.com/justicebus/offlinesync/internal/store"
)

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Attempted int
	Replayed  int
	Failed    int
}

// Queue holds pending operations in the sync-queue partition and knows how
// to replay them. Concurrent Drain calls coalesce into a single in-flight
// pass via singleflight, so double triggers (online event plus visibility
// kick) cannot replay the same item twice.
type Queue struct {
	store     store.Store
	transport netx.Transport
	log       logging.Logger

	group   singleflight.Group
	backoff func() retry.Backoff
	now     func() time.Time
}

// Option configures a Queue.
type Option func(*Queue)

// WithRetryPolicy sets a per-item retry schedule used during replay. The
// factory is invoked per item so backoff state is not shared. Without it,
// each item gets exactly one attempt per drain pass.
func WithRetryPolicy(factory func() retry.Backoff) Option {
	return func(q *Queue) { q.backoff = factory }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func New(st store.Store, transport netx.Transport, log logging.Logger, opts ...Option) *Queue {
	q := &Queue{
		store:     st,
		transport: transport,
		log:       log.With("component", "syncq"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends an unsynced item. It never touches the network; it only
// fails if the local store itself fails.
func (q *Queue) Enqueue(ctx context.Context, storeType string, data json.RawMessage, apiPath, method string) (models.SyncQueueItem, error) {
	if method == "" {
		method = http.MethodPost
	}

	item := models.SyncQueueItem{
		StoreType:      storeType,
		Data:           data,
		Timestamp:      q.now().UTC().Format(time.RFC3339),
		Synced:         false,
		APIPath:        apiPath,
		Method:         method,
		IdempotencyKey: uuid.NewString(),
	}

	value, err := json.Marshal(item)
	if err != nil {
		return item, fmt.Errorf("encode queue item: %w", err)
	}

	key, err := q.store.Put(ctx, store.PartitionSyncQueue, "", value)
	if err != nil {
		return item, fmt.Errorf("enqueue %s: %w", storeType, err)
	}
	item.ID = key

	q.log.Debug(ctx, "queued operation for later sync", "storeType", storeType, "apiPath", apiPath, "id", key)
	return item, nil
}

// Pending returns the unsynced items in insertion order.
func (q *Queue) Pending(ctx context.Context) ([]models.SyncQueueItem, error) {
	recs, err := q.store.GetAll(ctx, store.PartitionSyncQueue)
	if err != nil {
		return nil, err
	}

	items := make([]models.SyncQueueItem, 0, len(recs))
	for _, rec := range recs {
		var item models.SyncQueueItem
		if err := json.Unmarshal(rec.Value, &item); err != nil {
			q.log.Warn(ctx, "skipping malformed queue item", "id", rec.Key, "error", err)
			continue
		}
		if item.Synced {
			continue
		}
		item.ID = rec.Key
		items = append(items, item)
	}
	return items, nil
}

// Drain walks the queue once, replaying each unsynced item in insertion
// order. Successful items are deleted; failures stay queued for the next
// trigger. Concurrent calls share a single pass and its result.
func (q *Queue) Drain(ctx context.Context) (DrainResult, error) {
	v, err, _ := q.group.Do("drain", func() (any, error) {
		return q.drain(ctx)
	})
	res, _ := v.(DrainResult)
	return res, err
}

func (q *Queue) drain(ctx context.Context) (DrainResult, error) {
	var res DrainResult

	recs, err := q.store.GetAll(ctx, store.PartitionSyncQueue)
	if err != nil {
		return res, fmt.Errorf("load queue: %w", err)
	}

	for _, rec := range recs {
		var item models.SyncQueueItem
		if err := json.Unmarshal(rec.Value, &item); err != nil {
			q.log.Warn(ctx, "skipping malformed queue item", "id", rec.Key, "error", err)
			continue
		}
		item.ID = rec.Key

		// Items marked synced by an interrupted earlier pass are done;
		// lazily remove them, never replay.
		if item.Synced {
			_ = q.store.Delete(ctx, store.PartitionSyncQueue, rec.Key)
			continue
		}

		res.Attempted++
		if err := q.replay(ctx, item); err != nil {
			res.Failed++
			q.log.Warn(ctx, "replay failed, leaving item queued",
				"id", item.ID, "storeType", item.StoreType, "apiPath", item.APIPath, "error", err)
			continue
		}

		res.Replayed++
		if err := q.store.Delete(ctx, store.PartitionSyncQueue, rec.Key); err != nil {
			q.log.Error(ctx, "failed to remove replayed item", "id", item.ID, "error", err)
		}
	}

	if res.Attempted > 0 {
		q.log.Info(ctx, "drain finished", "attempted", res.Attempted, "replayed", res.Replayed, "failed", res.Failed)
	}
	return res, nil
}

func (q *Queue) replay(ctx context.Context, item models.SyncQueueItem) error {
	headers := map[string]string{}
	if item.IdempotencyKey != "" {
		headers[common.IdempotencyKeyHeaderName] = item.IdempotencyKey
	}

	if q.backoff == nil {
		_, err := q.transport.Do(ctx, item.Method, item.APIPath, item.Data, headers)
		return err
	}

	return retry.Do(ctx, q.backoff(), func(ctx context.Context) error {
		_, err := q.transport.Do(ctx, item.Method, item.APIPath, item.Data, headers)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
