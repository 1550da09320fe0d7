package kv

import "sync/atomic"

type opKind uint8

const (
	opPut opKind = iota
	opDelete
)

type batchOp struct {
	kind  opKind
	key   []byte
	value []byte
}

// WriteBatch records puts and deletes to be applied together. It is only
// handed out by DB.Batch; operations apply in the order they were added, so
// the last one for a key wins.
type WriteBatch struct {
	ops  []batchOp
	done atomic.Bool
}

func (b *WriteBatch) Put(key, value []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	b.ops = append(b.ops, batchOp{
		kind:  opPut,
		key:   append([]byte(nil), key...),
		value: append([]byte{}, value...),
	})
	return nil
}

func (b *WriteBatch) Delete(key []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	b.ops = append(b.ops, batchOp{
		kind: opDelete,
		key:  append([]byte(nil), key...),
	})
	return nil
}

// Len returns the number of recorded operations.
func (b *WriteBatch) Len() int {
	return len(b.ops)
}
