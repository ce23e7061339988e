package sstable

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bplusdb/pkg/common"
)

func build(t *testing.T, keys []common.KeyType) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dump.sst")
	b, err := NewBuilder(path)
	require.NoError(t, err)
	for _, k := range keys {
		require.NoError(t, b.Add(k, []byte(fmt.Sprintf("v%d", k))))
	}
	require.NoError(t, b.Close())
	return path
}

func TestBuildAndRead(t *testing.T) {
	var keys []common.KeyType
	for k := -500; k < 1000; k += 3 {
		keys = append(keys, common.KeyType(k))
	}
	path := build(t, keys)

	sst, err := Open(path)
	require.NoError(t, err)
	defer sst.Close()

	it := sst.Iter()
	i := 0
	for it.Next() {
		require.Equal(t, keys[i], it.Key())
		require.Equal(t, fmt.Sprintf("v%d", keys[i]), string(it.Value()))
		i++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, len(keys), i)

	for _, k := range []common.KeyType{-500, -2, 301, 997} {
		val, ok, err := sst.Get(k)
		require.NoError(t, err)
		require.True(t, ok, "key %d", k)
		assert.Equal(t, fmt.Sprintf("v%d", k), string(val))
	}
	for _, k := range []common.KeyType{-501, 0, 998, 5000} {
		_, ok, err := sst.Get(k)
		require.NoError(t, err)
		assert.False(t, ok, "key %d", k)
	}
}

func TestEmptyTable(t *testing.T) {
	sst, err := Open(build(t, nil))
	require.NoError(t, err)
	defer sst.Close()

	assert.False(t, sst.Iter().Next())
	_, ok, err := sst.Get(1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuilderRejectsOutOfOrder(t *testing.T) {
	b, err := NewBuilder(filepath.Join(t.TempDir(), "bad.sst"))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Add(2, nil))
	assert.ErrorIs(t, b.Add(2, nil), ErrOutOfOrder)
	assert.ErrorIs(t, b.Add(1, nil), ErrOutOfOrder)
	assert.Equal(t, 1, b.Count())
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.sst")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a sorted table"), 0644))
	_, err := Open(path)
	assert.ErrorIs(t, err, ErrCorrupt)

	good := build(t, []common.KeyType{1, 2, 3})
	data, err := os.ReadFile(good)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-1], 0644))
	_, err = Open(path)
	assert.ErrorIs(t, err, ErrCorrupt)
}
