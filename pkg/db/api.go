package db

import "errors"

var (
	// ErrNotFound is returned by Reader.Get when the key is not present.
	ErrNotFound = errors.New("db: key not found")
	// ErrStoreNotFound is returned by an Opener when no store exists at the
	// path and CreateIfMissing is false.
	ErrStoreNotFound = errors.New("db: store does not exist")
	// ErrStoreExists is returned by an Opener when a store exists at the path
	// and ErrorIfExists is true.
	ErrStoreExists = errors.New("db: store already exists")
	// ErrIteratorInvalid is returned when reading from an unpositioned or
	// exhausted iterator.
	ErrIteratorInvalid = errors.New("db: iterator is not valid")
)

// Compression selects the block compression of a store.
type Compression uint8

const (
	NoCompression Compression = iota
	SnappyCompression
)

// Config is the fully validated set of open-time parameters an engine receives.
type Config struct {
	CreateIfMissing bool
	ErrorIfExists   bool
	ParanoidChecks  bool
	WriteBufferSize uint64
	MaxOpenFiles    uint64
	// BlockCacheSize is zero when HasBlockCache is false; the engine then
	// picks its own cache.
	BlockCacheSize       uint64
	HasBlockCache        bool
	BlockSize            uint64
	BlockRestartInterval uint64
	Compression          Compression
}

// ReadOptions control a single read.
type ReadOptions struct {
	FillCache       bool
	VerifyChecksums bool
}

// WriteOptions control a single write or batch commit.
type WriteOptions struct {
	Sync bool
}

// Opener opens or creates the store at path.
type Opener func(path string, cfg Config) (Engine, error)

// Reader is the read surface shared by an engine and its snapshots.
type Reader interface {
	// Get returns a copy of the value for key, or ErrNotFound.
	Get(key []byte, opts ReadOptions) ([]byte, error)
	// NewIterator returns an unpositioned iterator over the whole key space.
	NewIterator(opts ReadOptions) (Iterator, error)
}

// Engine represents the embedded ordered key-value store the access layer
// delegates to.
type Engine interface {
	Reader
	Put(key, value []byte, opts WriteOptions) error
	Delete(key []byte, opts WriteOptions) error
	NewBatch() Batch
	NewSnapshot() (Snapshot, error)
	// Compact compacts the range [start, end). nil bounds are open.
	Compact(start, end []byte) error
	Close() error
}

// Snapshot is a point-in-time read view of an Engine.
type Snapshot interface {
	Reader
	Close() error
}

// Batch represents an atomic batch of operations.
// All operations in a batch are performed atomically.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Len() int
	Commit(opts WriteOptions) error
	Close() error
}

// Iterator provides ordered, bidirectional access to key-value pairs.
// Positioning methods report whether the iterator landed on an entry.
// Iterators must be closed after use.
type Iterator interface {
	First() bool
	Last() bool
	// SeekGE moves to the first key greater than or equal to key.
	SeekGE(key []byte) bool
	Next() bool
	Prev() bool
	Valid() bool
	// Key and Value return copies that remain valid after the iterator moves.
	Key() []byte
	Value() ([]byte, error)
	Error() error
	Close() error
}
