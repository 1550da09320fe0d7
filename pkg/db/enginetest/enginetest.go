// Package enginetest holds the behavioural tests every db.Engine adapter must
// pass.
package enginetest

import (
	"testing"

	"github.com/eigerco/levelkv/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises open against the engine contract. open is called once per
// sub-test with a fresh, empty directory.
func Run(t *testing.T, open db.Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.Engine)
	}{
		{name: "basic_put_get", fn: testBasicPutGet},
		{name: "delete_operations", fn: testDelete},
		{name: "basic_batch_operations", fn: testBasicBatchOperations},
		{name: "batch_commit_closure", fn: testBatchCommitAndClose},
		{name: "batch_close_discards", fn: testBatchCloseDiscards},
		{name: "ordered_iteration", fn: testOrderedIteration},
		{name: "seek_and_reverse", fn: testSeekAndReverse},
		{name: "iterator_validity", fn: testIteratorValidity},
		{name: "snapshot_isolation", fn: testSnapshotIsolation},
		{name: "compact", fn: testCompact},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := open(t.TempDir(), db.Config{CreateIfMissing: true})
			require.NoError(t, err)
			defer store.Close() //nolint:errcheck

			tc.fn(t, store)
		})
	}

	t.Run("open_matrix", func(t *testing.T) { testOpenMatrix(t, open) })
	t.Run("reopen_persists", func(t *testing.T) { testReopenPersists(t, open) })
}

func put(t *testing.T, store db.Engine, kv ...string) {
	t.Helper()
	for i := 0; i < len(kv); i += 2 {
		require.NoError(t, store.Put([]byte(kv[i]), []byte(kv[i+1]), db.WriteOptions{}))
	}
}

func testBasicPutGet(t *testing.T, store db.Engine) {
	key := []byte("test-key")
	value := []byte("test-value")

	err := store.Put(key, value, db.WriteOptions{Sync: true})
	require.NoError(t, err)

	retrieved, err := store.Get(key, db.ReadOptions{FillCache: true})
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	retrieved, err = store.Get(key, db.ReadOptions{VerifyChecksums: true})
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	// Test non-existent key
	_, err = store.Get([]byte("non-existent"), db.ReadOptions{})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testDelete(t *testing.T, store db.Engine) {
	key := []byte("delete-test")
	put(t, store, "delete-test", "to-be-deleted")

	err := store.Delete(key, db.WriteOptions{})
	require.NoError(t, err)

	_, err = store.Get(key, db.ReadOptions{})
	assert.ErrorIs(t, err, db.ErrNotFound)

	// Delete non-existent key should not error
	err = store.Delete([]byte("non-existent"), db.WriteOptions{Sync: true})
	assert.NoError(t, err)
}

func testBasicBatchOperations(t *testing.T, store db.Engine) {
	put(t, store, "key2", "old")

	batch := store.NewBatch()
	defer batch.Close() //nolint:errcheck

	keys := [][]byte{[]byte("key1"), []byte("key2"), []byte("key3")}
	values := [][]byte{[]byte("value1"), []byte("value2"), []byte("value3")}
	for i := range keys {
		require.NoError(t, batch.Put(keys[i], values[i]))
	}
	// Delete one key in the same batch
	require.NoError(t, batch.Delete(keys[1]))
	assert.Equal(t, 4, batch.Len())

	// Nothing is visible before commit
	_, err := store.Get(keys[0], db.ReadOptions{})
	assert.ErrorIs(t, err, db.ErrNotFound)

	require.NoError(t, batch.Commit(db.WriteOptions{}))

	val1, err := store.Get(keys[0], db.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, values[0], val1)

	_, err = store.Get(keys[1], db.ReadOptions{})
	assert.ErrorIs(t, err, db.ErrNotFound)

	val3, err := store.Get(keys[2], db.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, values[2], val3)
}

func testBatchCommitAndClose(t *testing.T, store db.Engine) {
	batch := store.NewBatch()

	require.NoError(t, batch.Put([]byte("key"), []byte("value")))
	require.NoError(t, batch.Commit(db.WriteOptions{Sync: true}))

	// Operations after commit should fail
	assert.Error(t, batch.Put([]byte("key2"), []byte("value2")))
	assert.Error(t, batch.Delete([]byte("key2")))
	assert.Error(t, batch.Commit(db.WriteOptions{}))

	// Close should not error, twice
	assert.NoError(t, batch.Close())
	assert.NoError(t, batch.Close())
}

func testBatchCloseDiscards(t *testing.T, store db.Engine) {
	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("discarded"), []byte("value")))
	require.NoError(t, batch.Close())

	_, err := store.Get([]byte("discarded"), db.ReadOptions{})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func collect(t *testing.T, iter db.Iterator, ok bool, step func() bool) []string {
	t.Helper()
	var keys []string
	for ; ok; ok = step() {
		keys = append(keys, string(iter.Key()))
	}
	require.NoError(t, iter.Error())
	return keys
}

func testOrderedIteration(t *testing.T, store db.Engine) {
	put(t, store, "c/1", "1", "a/1", "1", "b/2", "1", "b/1", "1", "b/3", "1")

	iter, err := store.NewIterator(db.ReadOptions{})
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck

	assert.Equal(t, []string{"a/1", "b/1", "b/2", "b/3", "c/1"}, collect(t, iter, iter.First(), iter.Next))
	assert.Equal(t, []string{"c/1", "b/3", "b/2", "b/1", "a/1"}, collect(t, iter, iter.Last(), iter.Prev))
}

func testSeekAndReverse(t *testing.T, store db.Engine) {
	put(t, store, "a/1", "1", "b/1", "1", "b/2", "1", "c/1", "1")

	iter, err := store.NewIterator(db.ReadOptions{})
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck

	require.True(t, iter.SeekGE([]byte("b")))
	assert.Equal(t, []byte("b/1"), iter.Key())

	require.True(t, iter.Prev())
	assert.Equal(t, []byte("a/1"), iter.Key())

	assert.False(t, iter.SeekGE([]byte("d")))
	assert.False(t, iter.Valid())
}

func testIteratorValidity(t *testing.T, store db.Engine) {
	put(t, store, "key1", "value1", "key2", "value2")

	iter, err := store.NewIterator(db.ReadOptions{})
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck

	// Initial state - iterator is not positioned
	assert.False(t, iter.Valid())

	assert.True(t, iter.First())
	assert.True(t, iter.Valid())
	val, err := iter.Value()
	require.NoError(t, err)
	assert.Equal(t, "value1", string(val))

	// Returned slices are copies
	key := iter.Key()
	assert.True(t, iter.Next())
	assert.Equal(t, "key1", string(key))

	// No more elements
	assert.False(t, iter.Next())
	assert.False(t, iter.Valid())

	_, err = iter.Value()
	assert.ErrorIs(t, err, db.ErrIteratorInvalid)
}

func testSnapshotIsolation(t *testing.T, store db.Engine) {
	put(t, store, "k1", "0", "k2", "0")

	snap, err := store.NewSnapshot()
	require.NoError(t, err)

	put(t, store, "k1", "1", "k3", "1")
	require.NoError(t, store.Delete([]byte("k2"), db.WriteOptions{}))

	v, err := snap.Get([]byte("k1"), db.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "0", string(v))

	_, err = snap.Get([]byte("k3"), db.ReadOptions{})
	assert.ErrorIs(t, err, db.ErrNotFound)

	iter, err := snap.NewIterator(db.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, collect(t, iter, iter.First(), iter.Next))
	require.NoError(t, iter.Close())

	require.NoError(t, snap.Close())
	assert.NoError(t, snap.Close())
}

func testCompact(t *testing.T, store db.Engine) {
	// Compacting an empty store is a no-op
	require.NoError(t, store.Compact(nil, nil))

	put(t, store, "a", "1", "b", "2", "c", "3")
	require.NoError(t, store.Delete([]byte("b"), db.WriteOptions{}))

	require.NoError(t, store.Compact(nil, nil))
	require.NoError(t, store.Compact([]byte("a"), []byte("c")))

	v, err := store.Get([]byte("c"), db.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "3", string(v))
	_, err = store.Get([]byte("b"), db.ReadOptions{})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testOpenMatrix(t *testing.T, open db.Opener) {
	path := t.TempDir()

	_, err := open(path, db.Config{})
	assert.ErrorIs(t, err, db.ErrStoreNotFound)

	store, err := open(path, db.Config{CreateIfMissing: true, ErrorIfExists: true})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = open(path, db.Config{CreateIfMissing: true, ErrorIfExists: true})
	assert.ErrorIs(t, err, db.ErrStoreExists)

	store, err = open(path, db.Config{ParanoidChecks: true})
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func testReopenPersists(t *testing.T, open db.Opener) {
	path := t.TempDir()
	cfg := db.Config{
		CreateIfMissing:      true,
		WriteBufferSize:      4 << 20,
		MaxOpenFiles:         100,
		BlockCacheSize:       8 << 20,
		HasBlockCache:        true,
		BlockSize:            2 << 10,
		BlockRestartInterval: 32,
		Compression:          db.NoCompression,
	}

	store, err := open(path, cfg)
	require.NoError(t, err)
	put(t, store, "persisted", "yes")
	require.NoError(t, store.Close())
	assert.NoError(t, store.Close())

	store, err = open(path, db.Config{})
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	v, err := store.Get([]byte("persisted"), db.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "yes", string(v))
}
