// Package codec turns tree snapshots into bytes and back.
//
// Every encoded snapshot starts with a five byte envelope: the magic
// "BPT1" followed by a format tag, so Decode can tell the payload format
// without being told.
package codec

import (
	"bytes"
	"cmp"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"

	"bplusdb/pkg/bptree"
)

type Format string

const (
	FormatCBOR Format = "cbor"
	FormatJSON Format = "json"
)

const (
	tagCBOR byte = 0x01
	tagJSON byte = 0x02
)

// HeaderSize is the envelope length preceding the payload.
const HeaderSize = 5

var magic = []byte("BPT1")

var (
	ErrUnknownFormat = errors.New("codec: unknown format")
	ErrBadEnvelope   = errors.New("codec: bad envelope")
)

var cborEnc cbor.EncMode

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// ParseFormat accepts "cbor" or "json", case-insensitively. An empty string
// selects CBOR.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCBOR:
		return FormatCBOR, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
}

func (f Format) tag() (byte, error) {
	switch f {
	case FormatCBOR:
		return tagCBOR, nil
	case FormatJSON:
		return tagJSON, nil
	}
	return 0, errors.Wrapf(ErrUnknownFormat, "%q", string(f))
}

// Encode serializes snap in format f behind the envelope.
func Encode[K cmp.Ordered, V any](f Format, snap *bptree.Snapshot[K, V]) ([]byte, error) {
	tag, err := f.tag()
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch f {
	case FormatCBOR:
		payload, err = cborEnc.Marshal(snap)
	case FormatJSON:
		payload, err = json.Marshal(snap)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "codec: encode %s", f)
	}

	out := make([]byte, 0, HeaderSize+len(payload))
	out = append(out, magic...)
	out = append(out, tag)
	return append(out, payload...), nil
}

// Sniff returns the format recorded in the envelope of data.
func Sniff(data []byte) (Format, error) {
	if len(data) < HeaderSize || !bytes.Equal(data[:len(magic)], magic) {
		return "", errors.Wrap(ErrBadEnvelope, "missing magic")
	}
	switch data[len(magic)] {
	case tagCBOR:
		return FormatCBOR, nil
	case tagJSON:
		return FormatJSON, nil
	}
	return "", errors.Wrapf(ErrUnknownFormat, "tag 0x%02x", data[len(magic)])
}

// Decode parses an enveloped snapshot. The snapshot is not checked for tree
// invariants; bptree.Import does that.
func Decode[K cmp.Ordered, V any](data []byte) (*bptree.Snapshot[K, V], Format, error) {
	f, err := Sniff(data)
	if err != nil {
		return nil, "", err
	}

	snap := new(bptree.Snapshot[K, V])
	payload := data[HeaderSize:]
	switch f {
	case FormatCBOR:
		err = cbor.Unmarshal(payload, snap)
	case FormatJSON:
		err = json.Unmarshal(payload, snap)
	}
	if err != nil {
		return nil, f, errors.Wrapf(err, "codec: decode %s", f)
	}
	return snap, f, nil
}

// EncodeTree exports t and encodes the snapshot.
func EncodeTree[K cmp.Ordered, V any](f Format, t *bptree.Tree[K, V]) ([]byte, error) {
	return Encode(f, t.Export())
}

// DecodeTree decodes data and imports the snapshot into a new tree.
func DecodeTree[K cmp.Ordered, V any](data []byte) (*bptree.Tree[K, V], error) {
	snap, _, err := Decode[K, V](data)
	if err != nil {
		return nil, err
	}
	return bptree.Import(snap)
}
