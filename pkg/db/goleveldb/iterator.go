package goleveldb

import (
	"github.com/eigerco/levelkv/pkg/db"
	"github.com/syndtr/goleveldb/leveldb/iterator"
)

type Iterator struct {
	iter iterator.Iterator
}

func (it *Iterator) First() bool { return it.iter.First() }

func (it *Iterator) Last() bool { return it.iter.Last() }

func (it *Iterator) SeekGE(key []byte) bool { return it.iter.Seek(key) }

func (it *Iterator) Next() bool { return it.iter.Next() }

func (it *Iterator) Prev() bool { return it.iter.Prev() }

func (it *Iterator) Valid() bool { return it.iter.Valid() }

func (it *Iterator) Key() []byte {
	key := it.iter.Key()
	result := make([]byte, len(key))
	copy(result, key)
	return result
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.iter.Valid() {
		return nil, db.ErrIteratorInvalid
	}
	val := it.iter.Value()
	result := make([]byte, len(val))
	copy(result, val)
	return result, nil
}

func (it *Iterator) Error() error {
	return it.iter.Error()
}

func (it *Iterator) Close() error {
	err := it.iter.Error()
	it.iter.Release()
	return err
}
