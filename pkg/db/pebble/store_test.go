package pebble

import (
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/eigerco/levelkv/pkg/db"
	"github.com/eigerco/levelkv/pkg/db/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVStore(t *testing.T) {
	enginetest.Run(t, Open)
}

func TestStoreClosure(t *testing.T) {
	store, err := NewKVStore(t.TempDir(), db.Config{CreateIfMissing: true})
	require.NoError(t, err)

	require.NoError(t, store.Close())

	// Test operations after close
	_, err = store.Get([]byte("key"), db.ReadOptions{})
	assert.ErrorIs(t, err, ErrClosed)

	err = store.Put([]byte("key"), []byte("value"), db.WriteOptions{})
	assert.ErrorIs(t, err, ErrClosed)

	err = store.Delete([]byte("key"), db.WriteOptions{})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = store.NewIterator(db.ReadOptions{})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = store.NewSnapshot()
	assert.ErrorIs(t, err, ErrClosed)

	// Double close should not error
	assert.NoError(t, store.Close())
}

func TestBatchDone(t *testing.T) {
	store, err := NewKVStore(t.TempDir(), db.Config{CreateIfMissing: true})
	require.NoError(t, err)
	defer store.Close() //nolint:errcheck

	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("k"), []byte("v")))
	require.NoError(t, batch.Commit(db.WriteOptions{}))

	assert.ErrorIs(t, batch.Put([]byte("k2"), []byte("v2")), ErrBatchDone)
	assert.ErrorIs(t, batch.Commit(db.WriteOptions{}), ErrBatchDone)
}

func TestCompression(t *testing.T) {
	assert.Equal(t, pebble.NoCompression, compression(db.NoCompression))
	assert.Equal(t, pebble.SnappyCompression, compression(db.SnappyCompression))
}
