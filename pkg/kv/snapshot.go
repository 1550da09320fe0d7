package kv

import (
	"fmt"
	"sync/atomic"

	"github.com/eigerco/levelkv/pkg/db"
	"github.com/eigerco/levelkv/pkg/log"
)

// Snapshot is a read-only view of a DB frozen at the moment it was taken.
//
// Released snapshots do not fail: reads made after Release see the live
// store, not the frozen view. Iterators opened before Release keep their
// frozen view until they are closed.
type Snapshot struct {
	db       *DB
	id       uint64
	released atomic.Bool

	// Guarded by db.mu.
	snap      db.Snapshot
	liveIters int
}

// reader returns what reads should hit; db.mu must be held.
func (s *Snapshot) reader() (db.Reader, error) {
	if s.db.closed {
		return nil, ErrClosed
	}
	if s.released.Load() {
		return s.db.engine, nil
	}
	return s.snap, nil
}

func (s *Snapshot) Get(key []byte, opts ...ReadOption) ([]byte, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	r, err := s.reader()
	if err != nil {
		return nil, err
	}
	return get(r, key, applyReadOptions(opts))
}

func (s *Snapshot) Exists(key []byte, opts ...ReadOption) (bool, error) {
	v, err := s.Get(key, opts...)
	return v != nil, err
}

// Size counts the keys visible to the snapshot.
func (s *Snapshot) Size() (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	r, err := s.reader()
	if err != nil {
		return 0, err
	}
	return count(r)
}

func (s *Snapshot) NewIterator(opts RangeOptions) (*Iterator, error) {
	return NewIterator(s, opts)
}

func (s *Snapshot) newIterator(opts RangeOptions) (*Iterator, error) {
	if s == nil || s.db == nil {
		return nil, ErrArgument
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	r, err := s.reader()
	if err != nil {
		return nil, err
	}
	if s.released.Load() {
		return s.db.registerIterator(r, nil, opts)
	}
	return s.db.registerIterator(r, s, opts)
}

func (s *Snapshot) Each(opts RangeOptions, fn VisitFunc) (*Iterator, error) {
	return each(s, opts, fn)
}

func (s *Snapshot) Keys() ([][]byte, error) {
	return keys(s)
}

func (s *Snapshot) Values() ([][]byte, error) {
	return values(s)
}

func (s *Snapshot) Released() bool {
	return s.released.Load()
}

// Release marks the snapshot released. The engine snapshot is freed once no
// iterator reads from it. Releasing twice, or after the DB was closed, is a
// no-op.
func (s *Snapshot) Release() error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if !s.released.CompareAndSwap(false, true) {
		return nil
	}
	log.Store.Debug().Uint64("snapshot", s.id).Int("iterators", s.liveIters).Msg("snapshot released")

	if s.liveIters > 0 {
		return nil
	}
	return s.freeLocked()
}

func (s *Snapshot) iteratorDoneLocked() {
	s.liveIters--
	if s.liveIters == 0 && s.released.Load() {
		if err := s.freeLocked(); err != nil {
			log.Store.Error().Err(err).Uint64("snapshot", s.id).Msg("free snapshot")
		}
	}
}

func (s *Snapshot) freeLocked() error {
	if s.snap == nil {
		return nil
	}
	err := s.snap.Close()
	s.snap = nil
	delete(s.db.snaps, s.id)
	if err != nil {
		return fmt.Errorf("release snapshot: %w", err)
	}
	return nil
}

func (s *Snapshot) closeFromParent() error {
	return s.freeLocked()
}
