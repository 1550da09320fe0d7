package kv

import (
	"bytes"
	"errors"
	"fmt"
	"iter"

	"github.com/eigerco/levelkv/pkg/db"
)

// RangeOptions bound an iteration. From is the inclusive start: the cursor
// starts on the first key >= From in either direction. To is an exclusive
// stop in the direction of travel: ascending iteration stops before the first
// key >= To, descending iteration before the first key <= To. nil bounds are
// open.
type RangeOptions struct {
	From     []byte
	To       []byte
	Reversed bool
}

// VisitFunc is called once per pair. Returning ErrStopIteration stops the
// walk without error; any other error stops it and is returned.
type VisitFunc func(key, value []byte) error

// InvalidReason says why an iterator has no current pair.
type InvalidReason uint8

const (
	ReasonNone InvalidReason = iota
	ReasonUnpositioned
	ReasonExhausted
	ReasonClosed
	ReasonError
)

func (r InvalidReason) String() string {
	switch r {
	case ReasonNone:
		return "valid"
	case ReasonUnpositioned:
		return "not positioned"
	case ReasonExhausted:
		return "exhausted"
	case ReasonClosed:
		return "closed"
	case ReasonError:
		return "error"
	default:
		return fmt.Sprintf("InvalidReason(%d)", uint8(r))
	}
}

// Source is something an Iterator can read from: a *DB or a *Snapshot.
type Source interface {
	newIterator(opts RangeOptions) (*Iterator, error)
}

// Iterator is a lazy, finite, single-pass cursor over a key range. Call Scan
// to move onto the next pair and Peek to read it. Once exhausted the engine
// cursor is released and the iterator cannot be restarted. An Iterator must
// not be used from several goroutines at once; distinct iterators are
// independent.
type Iterator struct {
	db   *DB
	snap *Snapshot
	id   uint64
	opts RangeOptions

	// Fields below are guarded by db.mu.
	cur        db.Iterator
	positioned bool
	reason     InvalidReason
	key, value []byte
	err        error
}

// NewIterator returns an unpositioned iterator over src. It fails with
// ErrArgument when src is nil.
func NewIterator(src Source, opts RangeOptions) (*Iterator, error) {
	if src == nil {
		return nil, ErrArgument
	}
	return src.newIterator(opts)
}

func (d *DB) newIterator(opts RangeOptions) (*Iterator, error) {
	if d == nil {
		return nil, ErrArgument
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	return d.registerIterator(d.engine, nil, opts)
}

// registerIterator must be called with d.mu held.
func (d *DB) registerIterator(r db.Reader, snap *Snapshot, opts RangeOptions) (*Iterator, error) {
	cur, err := r.NewIterator(db.ReadOptions{FillCache: true})
	if err != nil {
		return nil, fmt.Errorf("new iterator: %w", err)
	}

	d.nextID++
	it := &Iterator{
		db:     d,
		snap:   snap,
		id:     d.nextID,
		opts:   opts,
		cur:    cur,
		reason: ReasonUnpositioned,
	}
	d.iters[it.id] = it
	if snap != nil {
		snap.liveIters++
	}
	return it, nil
}

// Scan moves onto the first pair in range on its first call and onto the
// next one afterwards. It returns false once the range is exhausted, the
// iterator is closed or an error occurred; Err tells them apart.
func (it *Iterator) Scan() bool {
	if it.advance() {
		return true
	}
	if err := it.release(); err != nil {
		it.db.mu.Lock()
		if it.err == nil {
			it.err, it.reason = err, ReasonError
		}
		it.db.mu.Unlock()
	}
	return false
}

func (it *Iterator) advance() bool {
	it.db.mu.RLock()
	defer it.db.mu.RUnlock()

	if it.cur == nil {
		return false
	}

	var ok bool
	switch {
	case it.positioned && it.opts.Reversed:
		ok = it.cur.Prev()
	case it.positioned:
		ok = it.cur.Next()
	default:
		ok = it.position()
		it.positioned = true
	}

	it.key, it.value = nil, nil
	if !ok {
		if err := it.cur.Error(); err != nil {
			it.err, it.reason = fmt.Errorf("iterate: %w", err), ReasonError
			return false
		}
		it.reason = ReasonExhausted
		return false
	}

	key := it.cur.Key()
	if !it.inRange(key) {
		it.reason = ReasonExhausted
		return false
	}
	value, err := it.cur.Value()
	if err != nil {
		it.err, it.reason = fmt.Errorf("iterate: %w", err), ReasonError
		return false
	}

	it.key, it.value, it.reason = key, value, ReasonNone
	return true
}

func (it *Iterator) position() bool {
	if it.opts.From == nil {
		if it.opts.Reversed {
			return it.cur.Last()
		}
		return it.cur.First()
	}
	if it.cur.SeekGE(it.opts.From) {
		return true
	}
	// Every key is below From; a descending walk starts at the end.
	if it.opts.Reversed && it.cur.Error() == nil {
		return it.cur.Last()
	}
	return false
}

func (it *Iterator) inRange(key []byte) bool {
	if it.opts.To == nil {
		return true
	}
	if it.opts.Reversed {
		return bytes.Compare(key, it.opts.To) > 0
	}
	return bytes.Compare(key, it.opts.To) < 0
}

// Peek returns the current pair without moving. Repeated calls return the
// same pair. ok is false when there is no current pair; InvalidReason says
// why. The returned slices must not be modified.
func (it *Iterator) Peek() (key, value []byte, ok bool) {
	it.db.mu.RLock()
	defer it.db.mu.RUnlock()

	if it.reason != ReasonNone {
		return nil, nil, false
	}
	return it.key, it.value, true
}

// Valid reports whether Peek would return a pair.
func (it *Iterator) Valid() bool {
	return it.InvalidReason() == ReasonNone
}

func (it *Iterator) InvalidReason() InvalidReason {
	it.db.mu.RLock()
	defer it.db.mu.RUnlock()
	return it.reason
}

// Err returns the error that ended the iteration, if any. A DB closed under
// the iterator yields ErrClosed.
func (it *Iterator) Err() error {
	it.db.mu.RLock()
	defer it.db.mu.RUnlock()
	return it.err
}

// Each feeds every remaining pair to fn. It returns nil once the iterator
// is exhausted, so a second call on the same iterator visits nothing.
func (it *Iterator) Each(fn VisitFunc) error {
	if fn == nil {
		return ErrArgument
	}
	for it.Scan() {
		key, value, _ := it.Peek()
		if err := fn(key, value); err != nil {
			if errors.Is(err, ErrStopIteration) {
				return nil
			}
			return err
		}
	}
	return it.Err()
}

// All returns a single-use sequence over the remaining pairs. Errors are
// reported by Err once the loop ends.
func (it *Iterator) All() iter.Seq2[[]byte, []byte] {
	return func(yield func(key, value []byte) bool) {
		for it.Scan() {
			key, value, _ := it.Peek()
			if !yield(key, value) {
				return
			}
		}
	}
}

// Close releases the engine cursor. Closing twice, or closing an exhausted
// iterator, is a no-op.
func (it *Iterator) Close() error {
	it.db.mu.Lock()
	defer it.db.mu.Unlock()

	if it.reason == ReasonNone || it.reason == ReasonUnpositioned {
		it.reason = ReasonClosed
	}
	it.key, it.value = nil, nil
	return it.releaseLocked()
}

func (it *Iterator) release() error {
	it.db.mu.Lock()
	defer it.db.mu.Unlock()
	return it.releaseLocked()
}

// releaseLocked must be called with db.mu held for writing.
func (it *Iterator) releaseLocked() error {
	if it.cur == nil {
		return nil
	}
	err := it.cur.Close()
	it.cur = nil

	delete(it.db.iters, it.id)
	if it.snap != nil {
		it.snap.iteratorDoneLocked()
	}
	return err
}

func (it *Iterator) closeFromParent() error {
	if it.cur != nil && it.reason != ReasonError {
		it.reason, it.err = ReasonClosed, ErrClosed
	}
	it.key, it.value = nil, nil
	return it.releaseLocked()
}

func each(src Source, opts RangeOptions, fn VisitFunc) (*Iterator, error) {
	it, err := NewIterator(src, opts)
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return it, nil
	}
	if err := it.Each(fn); err != nil {
		_ = it.Close()
		return it, err
	}
	return it, it.Close()
}

func keys(src Source) ([][]byte, error) {
	var out [][]byte
	_, err := each(src, RangeOptions{}, func(key, _ []byte) error {
		out = append(out, key)
		return nil
	})
	return out, err
}

func values(src Source) ([][]byte, error) {
	var out [][]byte
	_, err := each(src, RangeOptions{}, func(_, value []byte) error {
		out = append(out, value)
		return nil
	})
	return out, err
}
