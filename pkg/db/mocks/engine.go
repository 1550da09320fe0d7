package mocks

import (
	"github.com/eigerco/levelkv/pkg/db"
	"github.com/stretchr/testify/mock"
)

// MockEngine implements db.Engine for testing
type MockEngine struct {
	mock.Mock
}

func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// Opener returns a db.Opener that hands out m regardless of path.
func (m *MockEngine) Opener() db.Opener {
	return func(string, db.Config) (db.Engine, error) {
		return m, nil
	}
}

func (m *MockEngine) Get(key []byte, opts db.ReadOptions) ([]byte, error) {
	args := m.Called(key, opts)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) NewIterator(opts db.ReadOptions) (db.Iterator, error) {
	args := m.Called(opts)
	if it := args.Get(0); it != nil {
		return it.(db.Iterator), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) Put(key, value []byte, opts db.WriteOptions) error {
	args := m.Called(key, value, opts)
	return args.Error(0)
}

func (m *MockEngine) Delete(key []byte, opts db.WriteOptions) error {
	args := m.Called(key, opts)
	return args.Error(0)
}

func (m *MockEngine) NewBatch() db.Batch {
	args := m.Called()
	return args.Get(0).(db.Batch)
}

func (m *MockEngine) NewSnapshot() (db.Snapshot, error) {
	args := m.Called()
	if s := args.Get(0); s != nil {
		return s.(db.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEngine) Compact(start, end []byte) error {
	args := m.Called(start, end)
	return args.Error(0)
}

func (m *MockEngine) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockBatch implements db.Batch for testing
type MockBatch struct {
	mock.Mock
}

func NewMockBatch() *MockBatch {
	return &MockBatch{}
}

func (m *MockBatch) Put(key, value []byte) error {
	args := m.Called(key, value)
	return args.Error(0)
}

func (m *MockBatch) Delete(key []byte) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockBatch) Len() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockBatch) Commit(opts db.WriteOptions) error {
	args := m.Called(opts)
	return args.Error(0)
}

func (m *MockBatch) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockIterator implements db.Iterator for testing
type MockIterator struct {
	mock.Mock
}

func NewMockIterator() *MockIterator {
	return &MockIterator{}
}

func (m *MockIterator) First() bool {
	return m.Called().Bool(0)
}

func (m *MockIterator) Last() bool {
	return m.Called().Bool(0)
}

func (m *MockIterator) SeekGE(key []byte) bool {
	return m.Called(key).Bool(0)
}

func (m *MockIterator) Next() bool {
	return m.Called().Bool(0)
}

func (m *MockIterator) Prev() bool {
	return m.Called().Bool(0)
}

func (m *MockIterator) Valid() bool {
	return m.Called().Bool(0)
}

func (m *MockIterator) Key() []byte {
	args := m.Called()
	if k := args.Get(0); k != nil {
		return k.([]byte)
	}
	return nil
}

func (m *MockIterator) Value() ([]byte, error) {
	args := m.Called()
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIterator) Error() error {
	return m.Called().Error(0)
}

func (m *MockIterator) Close() error {
	return m.Called().Error(0)
}
