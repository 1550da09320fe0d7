package pebble

import (
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/eigerco/levelkv/pkg/db"
)

type Snapshot struct {
	snap   *pebble.Snapshot
	closed atomic.Bool
}

func (s *Snapshot) Get(key []byte, _ db.ReadOptions) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return get(s.snap, key)
}

func (s *Snapshot) NewIterator(_ db.ReadOptions) (db.Iterator, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	iter, err := s.snap.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf(ErrInIteratorCreation, err)
	}
	return &Iterator{iter: iter}, nil
}

func (s *Snapshot) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.snap.Close()
}
