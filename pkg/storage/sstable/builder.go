// Package sstable reads and writes sorted record files: a run of
// [Key 8B] [ValLen 4B] [Value NB] records in strictly ascending key order,
// a sparse index of every IndexRate-th key, and a 16 byte footer
// [IndexStart 8B] [Magic 8B].
package sstable

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"

	"bplusdb/pkg/common"
)

const (
	MagicNumber = 0x4250545353540001
	IndexRate   = 100
	FooterSize  = 16
)

var (
	ErrOutOfOrder = errors.New("sstable: keys must be strictly ascending")
	ErrCorrupt    = errors.New("sstable: corrupt file")
)

type Builder struct {
	file         *os.File
	writer       *bufio.Writer
	offset       int64
	count        int
	last         common.KeyType
	indexKeys    []common.KeyType
	indexOffsets []int64
}

func NewBuilder(filename string) (*Builder, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "sstable: create %s", filename)
	}
	return &Builder{
		file:   f,
		writer: bufio.NewWriter(f),
	}, nil
}

// Add appends one record. Keys must arrive in strictly ascending order.
func (b *Builder) Add(key common.KeyType, val common.ValueType) error {
	if b.count > 0 && key <= b.last {
		return errors.Wrapf(ErrOutOfOrder, "key %d after %d", key, b.last)
	}
	if b.count%IndexRate == 0 {
		b.indexKeys = append(b.indexKeys, key)
		b.indexOffsets = append(b.indexOffsets, b.offset)
	}

	var head [12]byte
	binary.LittleEndian.PutUint64(head[0:8], uint64(key))
	binary.LittleEndian.PutUint32(head[8:12], uint32(len(val)))
	if _, err := b.writer.Write(head[:]); err != nil {
		return errors.Wrap(err, "sstable: write record")
	}
	if _, err := b.writer.Write(val); err != nil {
		return errors.Wrap(err, "sstable: write record")
	}

	b.offset += 12 + int64(len(val))
	b.count++
	b.last = key
	return nil
}

func (b *Builder) Count() int { return b.count }

// Close writes the index and footer and closes the file.
func (b *Builder) Close() error {
	indexStart := b.offset

	if err := binary.Write(b.writer, binary.LittleEndian, int32(len(b.indexKeys))); err != nil {
		return b.fail(err)
	}
	for i := range b.indexKeys {
		if err := binary.Write(b.writer, binary.LittleEndian, int64(b.indexKeys[i])); err != nil {
			return b.fail(err)
		}
		if err := binary.Write(b.writer, binary.LittleEndian, b.indexOffsets[i]); err != nil {
			return b.fail(err)
		}
	}

	if err := binary.Write(b.writer, binary.LittleEndian, indexStart); err != nil {
		return b.fail(err)
	}
	if err := binary.Write(b.writer, binary.LittleEndian, int64(MagicNumber)); err != nil {
		return b.fail(err)
	}

	if err := b.writer.Flush(); err != nil {
		return b.fail(err)
	}
	return errors.Wrap(b.file.Close(), "sstable: close")
}

func (b *Builder) fail(err error) error {
	b.file.Close()
	return errors.Wrap(err, "sstable: finish")
}
