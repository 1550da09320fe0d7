package kv

import (
	"errors"
	"testing"

	"github.com/eigerco/levelkv/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	runEngines(t, []struct {
		name string
		fn   func(t *testing.T, d *DB)
	}{
		{name: "isolation", fn: testSnapshotIsolation},
		{name: "iterator_isolation", fn: testSnapshotIterator},
		{name: "release_reads_live", fn: testSnapshotReleaseReadsLive},
		{name: "iterator_outlives_release", fn: testSnapshotIteratorOutlivesRelease},
		{name: "with_snapshot", fn: testWithSnapshot},
		{name: "db_close", fn: testSnapshotDBClose},
	})
}

func testSnapshotIsolation(t *testing.T, d *DB) {
	putAll(t, d, "a", "1", "b", "2")

	s, err := d.NewSnapshot()
	require.NoError(t, err)
	defer s.Release() //nolint:errcheck

	putAll(t, d, "a", "changed", "c", "3")
	_, err = d.Delete([]byte("b"))
	require.NoError(t, err)

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	ok, err := s.Exists([]byte("b"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists([]byte("c"))
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, testutils.Strings(keys))

	values, err := s.Values()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, testutils.Strings(values))

	v, err = d.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("changed"), v)
}

func testSnapshotIterator(t *testing.T, d *DB) {
	putAll(t, d, fixture...)

	s, err := d.NewSnapshot()
	require.NoError(t, err)
	defer s.Release() //nolint:errcheck

	putAll(t, d, "b/4", "6")
	_, err = d.Delete([]byte("b/1"))
	require.NoError(t, err)

	assert.Equal(t, []string{"b/1", "b/2", "b/3"}, scan(t, s, RangeOptions{From: []byte("b"), To: []byte("b/9")}))
	assert.Equal(t, []string{"b/2", "b/3", "b/4"}, scan(t, d, RangeOptions{From: []byte("b"), To: []byte("b/9")}))

	var seen []string
	_, err = s.Each(RangeOptions{From: []byte("c"), To: []byte("b"), Reversed: true}, func(key, _ []byte) error {
		seen = append(seen, string(key))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c/1", "b/3", "b/2", "b/1"}, seen)
}

func testSnapshotReleaseReadsLive(t *testing.T, d *DB) {
	putAll(t, d, "a", "1")

	s, err := d.NewSnapshot()
	require.NoError(t, err)
	putAll(t, d, "a", "2", "b", "3")

	require.NoError(t, s.Release())
	require.NoError(t, s.Release())
	assert.True(t, s.Released())

	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	n, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []string{"a", "b"}, scan(t, s, RangeOptions{}))

	d.mu.RLock()
	assert.Empty(t, d.snaps)
	d.mu.RUnlock()
}

func testSnapshotIteratorOutlivesRelease(t *testing.T, d *DB) {
	putAll(t, d, "a", "1", "b", "2")

	s, err := d.NewSnapshot()
	require.NoError(t, err)
	it, err := s.NewIterator(RangeOptions{})
	require.NoError(t, err)

	putAll(t, d, "c", "3")
	require.NoError(t, s.Release())

	d.mu.RLock()
	assert.Len(t, d.snaps, 1)
	d.mu.RUnlock()

	assert.Equal(t, []string{"a", "b"}, collect(t, it))

	d.mu.RLock()
	assert.Empty(t, d.snaps)
	assert.Nil(t, s.snap)
	d.mu.RUnlock()
}

func testWithSnapshot(t *testing.T, d *DB) {
	putAll(t, d, "a", "1")

	var held *Snapshot
	err := d.WithSnapshot(func(s *Snapshot) error {
		held = s
		putAll(t, d, "a", "2")
		v, err := s.Get([]byte("a"))
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), v)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, held.Released())

	boom := errors.New("boom")
	err = d.WithSnapshot(func(s *Snapshot) error {
		held = s
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.True(t, held.Released())

	assert.Panics(t, func() {
		_ = d.WithSnapshot(func(s *Snapshot) error {
			held = s
			panic("visitor failed")
		})
	})
	assert.True(t, held.Released())

	assert.ErrorIs(t, d.WithSnapshot(nil), ErrArgument)
}

func testSnapshotDBClose(t *testing.T, d *DB) {
	putAll(t, d, "a", "1")

	s, err := d.NewSnapshot()
	require.NoError(t, err)
	it, err := s.NewIterator(RangeOptions{})
	require.NoError(t, err)

	require.NoError(t, d.Close())

	_, err = s.Get([]byte("a"))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Size()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.NewIterator(RangeOptions{})
	assert.ErrorIs(t, err, ErrClosed)

	assert.False(t, it.Scan())
	assert.ErrorIs(t, it.Err(), ErrClosed)

	assert.NoError(t, s.Release())
	assert.NoError(t, it.Close())
}
