// Package pebble adapts github.com/cockroachdb/pebble to the db.Engine
// contract.
//
// Pebble always verifies block checksums and has no per-read cache bypass, so
// ReadOptions are accepted but have no effect. ParanoidChecks runs a full
// level consistency check right after open.
package pebble

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/eigerco/levelkv/pkg/db"
	"github.com/eigerco/levelkv/pkg/log"
)

type KVStore struct {
	db     *pebble.DB
	closed bool
	mu     sync.RWMutex
}

var _ db.Engine = (*KVStore)(nil)

// Open is a db.Opener for pebble.
func Open(path string, cfg db.Config) (db.Engine, error) {
	return NewKVStore(path, cfg)
}

func NewKVStore(path string, cfg db.Config) (*KVStore, error) {
	if err := db.CheckLayout(path, cfg); err != nil {
		return nil, err
	}

	opts := &pebble.Options{
		MemTableSize: cfg.WriteBufferSize,
		MaxOpenFiles: int(cfg.MaxOpenFiles),
		Levels: []pebble.LevelOptions{{
			BlockSize:            int(cfg.BlockSize),
			BlockRestartInterval: int(cfg.BlockRestartInterval),
			Compression:          compression(cfg.Compression),
		}},
		Logger: engineLogger{},
	}
	if cfg.HasBlockCache {
		cache := pebble.NewCache(int64(cfg.BlockCacheSize))
		// Open takes its own reference.
		defer cache.Unref()
		opts.Cache = cache
	}

	pdb, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}

	if cfg.ParanoidChecks {
		if err := pdb.CheckLevels(&pebble.CheckLevelsStats{}); err != nil {
			_ = pdb.Close()
			return nil, fmt.Errorf("paranoid check: %w", err)
		}
	}

	log.Engine.Debug().Str("engine", "pebble").Str("path", path).Msg("engine opened")
	return &KVStore{db: pdb}, nil
}

func compression(c db.Compression) pebble.Compression {
	if c == db.NoCompression {
		return pebble.NoCompression
	}
	return pebble.SnappyCompression
}

func writeOptions(o db.WriteOptions) *pebble.WriteOptions {
	if o.Sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

func (p *KVStore) Get(key []byte, _ db.ReadOptions) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}
	return get(p.db, key)
}

// getter is satisfied by both *pebble.DB and *pebble.Snapshot.
type getter interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

func get(g getter, key []byte) ([]byte, error) {
	value, closer, err := g.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (p *KVStore) Put(key, value []byte, opts db.WriteOptions) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	return p.db.Set(key, value, writeOptions(opts))
}

func (p *KVStore) Delete(key []byte, opts db.WriteOptions) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	return p.db.Delete(key, writeOptions(opts))
}

func (p *KVStore) NewSnapshot() (db.Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}
	return &Snapshot{snap: p.db.NewSnapshot()}, nil
}

// Compact compacts [start, end). pebble needs concrete bounds, so open ends
// are resolved to the first and past-the-last key currently stored.
func (p *KVStore) Compact(start, end []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	if start == nil || end == nil {
		iter, err := p.db.NewIter(nil)
		if err != nil {
			return fmt.Errorf(ErrInIteratorCreation, err)
		}
		if start == nil && iter.First() {
			start = append([]byte(nil), iter.Key()...)
		}
		if end == nil && iter.Last() {
			end = append(append([]byte(nil), iter.Key()...), 0)
		}
		if err := iter.Close(); err != nil {
			return err
		}
	}
	if start == nil || end == nil || bytes.Compare(start, end) >= 0 {
		// Nothing stored in range.
		return nil
	}
	return p.db.Compact(start, end, true)
}

func (p *KVStore) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.db.Close()
}

type engineLogger struct{}

func (engineLogger) Infof(format string, args ...interface{}) {
	log.Engine.Debug().Str("engine", "pebble").Msgf(format, args...)
}

func (engineLogger) Errorf(format string, args ...interface{}) {
	log.Engine.Error().Str("engine", "pebble").Msgf(format, args...)
}

func (engineLogger) Fatalf(format string, args ...interface{}) {
	log.Engine.Fatal().Str("engine", "pebble").Msgf(format, args...)
}
