// Package goleveldb adapts github.com/syndtr/goleveldb to the db.Engine
// contract. Unlike pebble it honours FillCache and VerifyChecksums per read,
// and maps ParanoidChecks to strict mode.
package goleveldb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/eigerco/levelkv/pkg/db"
	"github.com/eigerco/levelkv/pkg/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	ErrClosed    = errors.New("goleveldb: engine is closed")
	ErrBatchDone = errors.New("goleveldb: batch already committed or closed")
)

type Store struct {
	db     *leveldb.DB
	closed bool
	mu     sync.RWMutex
}

var _ db.Engine = (*Store)(nil)

// Open is a db.Opener for goleveldb.
func Open(path string, cfg db.Config) (db.Engine, error) {
	return New(path, cfg)
}

func New(path string, cfg db.Config) (*Store, error) {
	if err := db.CheckLayout(path, cfg); err != nil {
		return nil, err
	}

	ldb, err := leveldb.OpenFile(path, options(cfg))
	if err != nil {
		return nil, fmt.Errorf("open goleveldb: %w", err)
	}

	log.Engine.Debug().Str("engine", "goleveldb").Str("path", path).Msg("engine opened")
	return &Store{db: ldb}, nil
}

func options(cfg db.Config) *opt.Options {
	o := &opt.Options{
		ErrorIfMissing:         !cfg.CreateIfMissing,
		ErrorIfExist:           cfg.ErrorIfExists,
		WriteBuffer:            int(cfg.WriteBufferSize),
		OpenFilesCacheCapacity: int(cfg.MaxOpenFiles),
		BlockSize:              int(cfg.BlockSize),
		BlockRestartInterval:   int(cfg.BlockRestartInterval),
		Compression:            opt.SnappyCompression,
	}
	if cfg.Compression == db.NoCompression {
		o.Compression = opt.NoCompression
	}
	if cfg.HasBlockCache {
		o.BlockCacheCapacity = int(cfg.BlockCacheSize)
		// goleveldb reads a zero capacity as "use the default".
		o.DisableBlockCache = cfg.BlockCacheSize == 0
	}
	if cfg.ParanoidChecks {
		o.Strict = opt.StrictAll
	}
	return o
}

func readOptions(o db.ReadOptions) *opt.ReadOptions {
	ro := &opt.ReadOptions{DontFillCache: !o.FillCache}
	if o.VerifyChecksums {
		ro.Strict = opt.StrictBlockChecksum
	}
	return ro
}

func writeOptions(o db.WriteOptions) *opt.WriteOptions {
	return &opt.WriteOptions{Sync: o.Sync}
}

// getter is satisfied by both *leveldb.DB and *leveldb.Snapshot.
type getter interface {
	Get(key []byte, ro *opt.ReadOptions) ([]byte, error)
}

func get(g getter, key []byte, opts db.ReadOptions) ([]byte, error) {
	value, err := g.Get(key, readOptions(opts))
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	// goleveldb already returns a private copy; keep it non-nil.
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *Store) Get(key []byte, opts db.ReadOptions) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	return get(s.db, key, opts)
}

func (s *Store) Put(key, value []byte, opts db.WriteOptions) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	return s.db.Put(key, value, writeOptions(opts))
}

func (s *Store) Delete(key []byte, opts db.WriteOptions) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	return s.db.Delete(key, writeOptions(opts))
}

func (s *Store) NewIterator(opts db.ReadOptions) (db.Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	return &Iterator{iter: s.db.NewIterator(nil, readOptions(opts))}, nil
}

func (s *Store) NewSnapshot() (db.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return &Snapshot{snap: snap}, nil
}

func (s *Store) Compact(start, end []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	return s.db.CompactRange(util.Range{Start: start, Limit: end})
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
