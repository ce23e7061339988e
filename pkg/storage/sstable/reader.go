package sstable

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sort"

	"github.com/cockroachdb/errors"

	"bplusdb/pkg/common"
)

type SSTable struct {
	file         *os.File
	dataSize     int64
	indexKeys    []common.KeyType
	indexOffsets []int64
}

func Open(filename string) (*SSTable, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "sstable: open %s", filename)
	}
	t, err := load(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "sstable: open %s", filename)
	}
	return t, nil
}

func load(f *os.File) (*SSTable, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := stat.Size()
	if size < FooterSize+4 {
		return nil, errors.Wrap(ErrCorrupt, "file too small")
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, size-FooterSize); err != nil {
		return nil, err
	}
	indexStart := int64(binary.LittleEndian.Uint64(footer[0:8]))
	if int64(binary.LittleEndian.Uint64(footer[8:16])) != MagicNumber {
		return nil, errors.Wrap(ErrCorrupt, "invalid magic number")
	}
	if indexStart < 0 || indexStart > size-FooterSize-4 {
		return nil, errors.Wrapf(ErrCorrupt, "index offset %d", indexStart)
	}

	r := io.NewSectionReader(f, indexStart, size-FooterSize-indexStart)
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	if count < 0 || int64(count)*16 != size-FooterSize-indexStart-4 {
		return nil, errors.Wrapf(ErrCorrupt, "index of %d entries", count)
	}

	keys := make([]common.KeyType, count)
	offsets := make([]int64, count)
	for i := range keys {
		var k, off int64
		if err := binary.Read(r, binary.LittleEndian, &k); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &off); err != nil {
			return nil, err
		}
		keys[i] = common.KeyType(k)
		offsets[i] = off
	}

	return &SSTable{
		file:         f,
		dataSize:     indexStart,
		indexKeys:    keys,
		indexOffsets: offsets,
	}, nil
}

// Get finds key through the sparse index and a short forward scan.
func (t *SSTable) Get(key common.KeyType) (common.ValueType, bool, error) {
	idx := sort.Search(len(t.indexKeys), func(i int) bool {
		return t.indexKeys[i] > key
	})
	if idx == 0 {
		return nil, false, nil
	}

	it := t.iterFrom(t.indexOffsets[idx-1])
	for it.Next() {
		switch {
		case it.Key() == key:
			return it.Value(), true, nil
		case it.Key() > key:
			return nil, false, nil
		}
	}
	return nil, false, it.Err()
}

// Iter walks every record in key order.
func (t *SSTable) Iter() *Iterator {
	return t.iterFrom(0)
}

func (t *SSTable) iterFrom(offset int64) *Iterator {
	section := io.NewSectionReader(t.file, offset, t.dataSize-offset)
	return &Iterator{r: bufio.NewReader(section), limit: t.dataSize - offset}
}

func (t *SSTable) Close() error {
	return t.file.Close()
}

type Iterator struct {
	r     *bufio.Reader
	limit int64
	key   common.KeyType
	val   common.ValueType
	err   error
}

func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	var head [12]byte
	if _, err := io.ReadFull(it.r, head[:]); err != nil {
		if err != io.EOF {
			it.err = errors.Wrap(ErrCorrupt, "short record header")
		}
		return false
	}
	n := binary.LittleEndian.Uint32(head[8:12])
	if int64(n) > it.limit {
		it.err = errors.Wrapf(ErrCorrupt, "value length %d", n)
		return false
	}
	val := make([]byte, n)
	if _, err := io.ReadFull(it.r, val); err != nil {
		it.err = errors.Wrap(ErrCorrupt, "short record value")
		return false
	}
	it.key = common.KeyType(binary.LittleEndian.Uint64(head[0:8]))
	it.val = val
	return true
}

func (it *Iterator) Key() common.KeyType     { return it.key }
func (it *Iterator) Value() common.ValueType { return it.val }

// Err reports the error that stopped iteration, if any.
func (it *Iterator) Err() error { return it.err }
