package common

import "fmt"

// KeyType is the key of the store's index.
type KeyType int64

// ValueType is an opaque stored value.
type ValueType []byte

// Record is one key/value pair as accepted by bulk loads and returned by
// scans.
type Record struct {
	Key   KeyType
	Value ValueType
}

// String 方便调试打印
func (r *Record) String() string {
	return fmt.Sprintf("Record{Key: %d, ValLen: %d}", r.Key, len(r.Value))
}
