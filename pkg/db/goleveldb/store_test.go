package goleveldb

import (
	"testing"

	"github.com/eigerco/levelkv/pkg/db"
	"github.com/eigerco/levelkv/pkg/db/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

func TestStore(t *testing.T) {
	enginetest.Run(t, Open)
}

func TestOptionsMapping(t *testing.T) {
	o := options(db.Config{
		CreateIfMissing:      true,
		ParanoidChecks:       true,
		WriteBufferSize:      1 << 20,
		MaxOpenFiles:         64,
		BlockCacheSize:       0,
		HasBlockCache:        true,
		BlockSize:            2048,
		BlockRestartInterval: 8,
		Compression:          db.NoCompression,
	})
	assert.False(t, o.ErrorIfMissing)
	assert.False(t, o.ErrorIfExist)
	assert.Equal(t, opt.StrictAll, o.Strict)
	assert.Equal(t, 1<<20, o.WriteBuffer)
	assert.Equal(t, 64, o.OpenFilesCacheCapacity)
	assert.True(t, o.DisableBlockCache)
	assert.Equal(t, 2048, o.BlockSize)
	assert.Equal(t, 8, o.BlockRestartInterval)
	assert.Equal(t, opt.NoCompression, o.Compression)

	o = options(db.Config{})
	assert.True(t, o.ErrorIfMissing)
	assert.False(t, o.DisableBlockCache)
	assert.Equal(t, opt.SnappyCompression, o.Compression)

	ro := readOptions(db.ReadOptions{FillCache: false, VerifyChecksums: true})
	assert.True(t, ro.DontFillCache)
	assert.Equal(t, opt.StrictBlockChecksum, ro.Strict)
}

func TestStoreClosure(t *testing.T) {
	store, err := New(t.TempDir(), db.Config{CreateIfMissing: true})
	require.NoError(t, err)

	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("k"), []byte("v")))

	require.NoError(t, store.Close())

	_, err = store.Get([]byte("key"), db.ReadOptions{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.Put([]byte("key"), []byte("value"), db.WriteOptions{}), ErrClosed)
	assert.ErrorIs(t, batch.Commit(db.WriteOptions{}), ErrClosed)
	assert.NoError(t, store.Close())
}
