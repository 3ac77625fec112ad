package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	return s, dir
}

func TestFileStore_PutGetRoundTrip(t *testing.T) {
	s, _ := setupFileStore(t)
	ctx := context.Background()

	key, err := s.Put(ctx, PartitionEvents, "current", []byte(`{"v":1}`))
	require.NoError(t, err)
	assert.Equal(t, "current", key)

	got, err := s.Get(ctx, PartitionEvents, "current")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(got))
}

func TestFileStore_OverwriteKeepsSingleRecord(t *testing.T) {
	s, _ := setupFileStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, PartitionEvents, "current", []byte(`{"v":1}`))
	require.NoError(t, err)
	_, err = s.Put(ctx, PartitionEvents, "current", []byte(`{"v":2}`))
	require.NoError(t, err)

	all, err := s.GetAll(ctx, PartitionEvents)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.JSONEq(t, `{"v":2}`, string(all[0].Value))
}

func TestFileStore_AutoKeysAndOrder(t *testing.T) {
	s, _ := setupFileStore(t)
	ctx := context.Background()

	k1, err := s.Put(ctx, PartitionSyncQueue, "", []byte(`"a"`))
	require.NoError(t, err)
	k2, err := s.Put(ctx, PartitionSyncQueue, "", []byte(`"b"`))
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	all, err := s.GetAll(ctx, PartitionSyncQueue)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, k1, all[0].Key)
	assert.Equal(t, k2, all[1].Key)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	s, dir := setupFileStore(t)
	ctx := context.Background()

	_, err := s.Put(ctx, PartitionVerifications, "p_1", []byte(`{"phone":"p"}`))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)

	got, err := reopened.Get(ctx, PartitionVerifications, "p_1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"phone":"p"}`, string(got))
}

func TestFileStore_DeleteIdempotentAndMissIsNil(t *testing.T) {
	s, _ := setupFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, PartitionForms, "absent"))

	got, err := s.Get(ctx, PartitionForms, "absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}
