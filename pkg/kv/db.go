// Package kv is the access layer over an embedded, ordered key-value engine.
//
// A DB is opened from validated Options and hands out Iterators, Snapshots
// and scoped WriteBatches. Children hold a non-owning reference to their DB:
// closing the DB releases their engine resources and every later call on
// them fails with ErrClosed.
package kv

import (
	"errors"
	"fmt"
	"sync"

	"github.com/eigerco/levelkv/pkg/db"
	"github.com/eigerco/levelkv/pkg/log"
)

type DB struct {
	path   string
	opts   Options
	engine db.Engine

	// mu guards the lifecycle: closed, the child registries and the mutable
	// state of children. Engine calls run under the read lock.
	mu     sync.RWMutex
	closed bool
	nextID uint64
	iters  map[uint64]*Iterator
	snaps  map[uint64]*Snapshot
}

// Open opens the store at path. CreateIfMissing and ErrorIfExists are honoured
// here and only here: a missing store fails with ErrStoreNotFound, an existing
// one with ErrStoreExists when ErrorIfExists is set.
func Open(path string, opts Options) (*DB, error) {
	open, ok := engines[opts.Engine()]
	if !ok {
		return nil, &ConfigError{Option: OptEngine}
	}

	engine, err := open(path, opts.engineConfig())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	log.Store.Debug().
		Str("path", path).
		Str("engine", string(opts.Engine())).
		Bool("create_if_missing", opts.CreateIfMissing()).
		Bool("error_if_exists", opts.ErrorIfExists()).
		Msg("store opened")

	return &DB{
		path:   path,
		opts:   opts,
		engine: engine,
		iters:  make(map[uint64]*Iterator),
		snaps:  make(map[uint64]*Snapshot),
	}, nil
}

// OpenOrCreate opens the store at path, creating it when missing.
func OpenOrCreate(path string, raw map[string]any) (*DB, error) {
	return openWithDefaults(path, raw, true, false)
}

// Create creates a new store at path and fails if one already exists.
func Create(path string, raw map[string]any) (*DB, error) {
	return openWithDefaults(path, raw, true, true)
}

// Load opens an existing store at path and fails if there is none.
func Load(path string, raw map[string]any) (*DB, error) {
	return openWithDefaults(path, raw, false, false)
}

// openWithDefaults fills create_if_missing and error_if_exists only when the
// caller left them out of raw; explicit values win.
func openWithDefaults(path string, raw map[string]any, createIfMissing, errorIfExists bool) (*DB, error) {
	merged := make(map[string]any, len(raw)+2)
	for k, v := range raw {
		merged[k] = v
	}
	if _, ok := lookup(merged, OptCreateIfMissing); !ok {
		merged[OptCreateIfMissing] = createIfMissing
	}
	if _, ok := lookup(merged, OptErrorIfExists); !ok {
		merged[OptErrorIfExists] = errorIfExists
	}

	opts, err := ParseOptions(merged)
	if err != nil {
		return nil, err
	}
	return Open(path, opts)
}

func (d *DB) Path() string { return d.path }

// Options returns the options the store was opened with.
func (d *DB) Options() Options { return d.opts }

// Get returns the value stored under key, or nil if there is none. A present
// value is never nil, even when empty.
func (d *DB) Get(key []byte, opts ...ReadOption) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, ErrClosed
	}
	return get(d.engine, key, applyReadOptions(opts))
}

func get(r db.Reader, key []byte, ro db.ReadOptions) ([]byte, error) {
	value, err := r.Get(key, ro)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Exists reports whether key is present.
func (d *DB) Exists(key []byte, opts ...ReadOption) (bool, error) {
	v, err := d.Get(key, opts...)
	return v != nil, err
}

func (d *DB) Put(key, value []byte, opts ...WriteOption) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}
	if err := d.engine.Put(key, value, applyWriteOptions(opts)); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	return nil
}

// Delete removes key and reports whether it was present. Presence is
// decided by a read before the delete; when the key is absent no delete is
// issued. The read and the delete are not atomic with respect to other
// writers.
func (d *DB) Delete(key []byte, opts ...WriteOption) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false, ErrClosed
	}

	_, err := d.engine.Get(key, db.ReadOptions{FillCache: true})
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}

	if err := d.engine.Delete(key, applyWriteOptions(opts)); err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}
	return true, nil
}

// Size returns the exact number of keys by walking the whole store.
func (d *DB) Size() (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return 0, ErrClosed
	}
	return count(d.engine)
}

func count(r db.Reader) (int, error) {
	iter, err := r.NewIterator(db.ReadOptions{})
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	n := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		_ = iter.Close()
		return 0, fmt.Errorf("count: %w", err)
	}
	if err := iter.Close(); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Compact asks the engine to compact the key range [from, to). nil bounds
// are open.
func (d *DB) Compact(from, to []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}
	if err := d.engine.Compact(from, to); err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	return nil
}

// NewIterator returns an unpositioned iterator over the live store.
func (d *DB) NewIterator(opts RangeOptions) (*Iterator, error) {
	return NewIterator(d, opts)
}

// Each visits every pair in range with fn and returns the exhausted
// iterator. With a nil fn the iterator is returned undriven.
func (d *DB) Each(opts RangeOptions, fn VisitFunc) (*Iterator, error) {
	return each(d, opts, fn)
}

// ReverseEach is Each in descending key order.
func (d *DB) ReverseEach(opts RangeOptions, fn VisitFunc) (*Iterator, error) {
	opts.Reversed = true
	return each(d, opts, fn)
}

// Keys returns every key in ascending order.
func (d *DB) Keys() ([][]byte, error) {
	return keys(d)
}

// Values returns every value in ascending key order.
func (d *DB) Values() ([][]byte, error) {
	return values(d)
}

// Batch runs fn with an empty WriteBatch and commits it atomically when fn
// returns nil. When fn returns an error or panics nothing is written and the
// error or panic is passed on.
func (d *DB) Batch(fn func(b *WriteBatch) error, opts ...WriteOption) error {
	if fn == nil {
		return ErrArgument
	}
	if d.isClosed() {
		return ErrClosed
	}

	b := &WriteBatch{}
	defer b.done.Store(true)

	if err := fn(b); err != nil {
		log.Store.Debug().Err(err).Int("ops", b.Len()).Msg("write batch discarded")
		return err
	}
	b.done.Store(true)
	return d.commit(b, applyWriteOptions(opts))
}

func (d *DB) commit(b *WriteBatch, wo db.WriteOptions) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}
	if len(b.ops) == 0 {
		return nil
	}

	eb := d.engine.NewBatch()
	defer eb.Close() //nolint:errcheck

	for _, op := range b.ops {
		var err error
		switch op.kind {
		case opPut:
			err = eb.Put(op.key, op.value)
		case opDelete:
			err = eb.Delete(op.key)
		}
		if err != nil {
			return fmt.Errorf("build batch: %w", err)
		}
	}
	if err := eb.Commit(wo); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	log.Store.Debug().Int("ops", len(b.ops)).Bool("sync", wo.Sync).Msg("write batch committed")
	return nil
}

// NewSnapshot pins the current state of the store. The caller must Release
// it; WithSnapshot does so automatically.
func (d *DB) NewSnapshot() (*Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	es, err := d.engine.NewSnapshot()
	if err != nil {
		return nil, fmt.Errorf("new snapshot: %w", err)
	}

	d.nextID++
	s := &Snapshot{db: d, id: d.nextID, snap: es}
	d.snaps[s.id] = s

	log.Store.Debug().Uint64("snapshot", s.id).Msg("snapshot taken")
	return s, nil
}

// WithSnapshot runs fn with a fresh snapshot and releases it when fn
// returns or panics.
func (d *DB) WithSnapshot(fn func(s *Snapshot) error) (err error) {
	if fn == nil {
		return ErrArgument
	}
	s, err := d.NewSnapshot()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := s.Release(); err == nil {
			err = rerr
		}
	}()
	return fn(s)
}

func (d *DB) isClosed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// Close closes the store. Live iterators and snapshots are released first
// and fail with ErrClosed from then on. Closing twice is a no-op.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if n := len(d.iters) + len(d.snaps); n > 0 {
		log.Store.Warn().
			Int("iterators", len(d.iters)).
			Int("snapshots", len(d.snaps)).
			Msg("closing store with live children")
	}

	var errs []error
	// Iterators go first: an engine snapshot must outlive the cursors
	// reading from it.
	for _, it := range d.iters {
		errs = append(errs, it.closeFromParent())
	}
	for _, s := range d.snaps {
		errs = append(errs, s.closeFromParent())
	}
	d.iters, d.snaps = nil, nil

	errs = append(errs, d.engine.Close())
	log.Store.Debug().Str("path", d.path).Msg("store closed")

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
