// Package store provides the durable local store backing all offline
// features: a small CRUD contract over named partitions, with a SQLite
// implementation as the primary tier and a flat-file implementation as the
// fallback tier.
//
// # Contract
//
// Writes are upserts: putting an existing key overwrites the prior value.
// Get returns nil (not an error) on a miss. GetAll returns records in
// insertion order. Delete is idempotent. Any operation may fail with an
// error matching common.ErrStoreUnavailable; callers are expected to treat
// that as a soft failure and fall back rather than crash.
package store

import "context"

// Partition names. One partition per feature area plus the shared sync queue
// and a meta partition for bookkeeping (migration markers).
const (
	PartitionEvents        = "events"
	PartitionForms         = "forms"
	PartitionCases         = "cases"
	PartitionNotifications = "notifications"
	PartitionVerifications = "verifications"
	PartitionSyncQueue     = "sync-queue"
	PartitionMeta          = "meta"
)

// Record is one stored key/value pair.
type Record struct {
	Key   string
	Value []byte
}

// Store is the storage capability all offline adapters depend on.
type Store interface {
	// Put inserts or overwrites value under (partition, key). An empty key
	// asks the store to assign one (monotonically increasing, so insertion
	// order is preserved). The effective key is returned.
	Put(ctx context.Context, partition, key string, value []byte) (string, error)

	// Get returns the value under (partition, key), or nil if absent.
	Get(ctx context.Context, partition, key string) ([]byte, error)

	// GetAll returns every record in the partition in insertion order.
	GetAll(ctx context.Context, partition string) ([]Record, error)

	// Delete removes (partition, key). No-op if the key is absent.
	Delete(ctx context.Context, partition, key string) error

	Close() error
}
