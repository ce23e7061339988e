package core

import "bplusdb/pkg/common"

// Index is the read side shared by every index implementation.
type Index interface {
	Get(key common.KeyType) (common.ValueType, bool)
	Range(start, end common.KeyType) []common.Record
	Size() int
	Type() string
}
