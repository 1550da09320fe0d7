package kv

import (
	"errors"

	"github.com/eigerco/levelkv/pkg/db"
)

var (
	// ErrClosed is returned by every operation on a closed DB and by every
	// iterator or snapshot whose DB has been closed.
	ErrClosed = errors.New("kv: store is closed")
	// ErrArgument is returned when an iterator is requested without a DB or
	// Snapshot to read from.
	ErrArgument = errors.New("kv: iterator needs a DB or Snapshot")
	// ErrBatchDone is returned when a WriteBatch is used after its Batch
	// scope has ended.
	ErrBatchDone = errors.New("kv: write batch used outside its scope")
	// ErrStopIteration can be returned by a VisitFunc to stop Each early
	// without reporting an error.
	ErrStopIteration = errors.New("kv: stop iteration")

	ErrStoreNotFound = db.ErrStoreNotFound
	ErrStoreExists   = db.ErrStoreExists
)

// ConfigError reports an option whose value has the wrong type or lies
// outside its enumerated range.
type ConfigError struct {
	Option string
}

func (e *ConfigError) Error() string {
	return "invalid type for " + e.Option
}
