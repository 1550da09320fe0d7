package goleveldb

import (
	"sync/atomic"

	"github.com/eigerco/levelkv/pkg/db"
	"github.com/syndtr/goleveldb/leveldb"
)

type Batch struct {
	store *Store
	batch *leveldb.Batch
	done  atomic.Bool
}

func (s *Store) NewBatch() db.Batch {
	return &Batch{store: s, batch: new(leveldb.Batch)}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	b.batch.Put(key, value)
	return nil
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	b.batch.Delete(key)
	return nil
}

func (b *Batch) Len() int {
	return b.batch.Len()
}

func (b *Batch) Commit(opts db.WriteOptions) error {
	if b.done.Load() {
		return ErrBatchDone
	}

	b.store.mu.RLock()
	defer b.store.mu.RUnlock()
	if b.store.closed {
		return ErrClosed
	}

	if err := b.store.db.Write(b.batch, writeOptions(opts)); err != nil {
		return err
	}
	b.done.Store(true)
	return nil
}

func (b *Batch) Close() error {
	if b.done.CompareAndSwap(false, true) {
		b.batch.Reset()
	}
	return nil
}
