package goleveldb

import (
	"sync/atomic"

	"github.com/eigerco/levelkv/pkg/db"
	"github.com/syndtr/goleveldb/leveldb"
)

type Snapshot struct {
	snap   *leveldb.Snapshot
	closed atomic.Bool
}

func (s *Snapshot) Get(key []byte, opts db.ReadOptions) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return get(s.snap, key, opts)
}

func (s *Snapshot) NewIterator(opts db.ReadOptions) (db.Iterator, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return &Iterator{iter: s.snap.NewIterator(nil, readOptions(opts))}, nil
}

func (s *Snapshot) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.snap.Release()
	}
	return nil
}
