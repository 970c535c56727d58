// Package bencode implements the BitTorrent wire encoding for the four
// bencode types: byte strings, integers, lists and dictionaries.
//
// The encoder operates on an explicit value tree (string, []byte, integers,
// []any, map[string]any); it is not reflective or schema driven. Dictionary
// keys are always emitted in ascending lexicographic byte order, which is
// required both for client compatibility and for reproducible info hashes.
package bencode

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

type (
	Dict = map[string]any
	List = []any
)

var (
	// ErrMalformed is returned by Decode for input that is not valid bencode.
	ErrMalformed = errors.New("bencode: malformed data")

	// ErrUnsupportedType is returned by Encode for values outside the
	// supported value tree.
	ErrUnsupportedType = errors.New("bencode: unsupported type")
)

func errMalformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

func writeInt64[T ~int64 | ~int](buf *bytes.Buffer, v T) {
	// Static allocation, length of max int64
	var lenBuf [20]byte

	buf.Write(strconv.AppendInt(lenBuf[:0], int64(v), 10))
}

func writeString[T ~string | ~[]byte](buf *bytes.Buffer, v T) {
	writeInt64(buf, len(v))
	buf.WriteByte(':')
	buf.Write([]byte(v))
}

func writeNumber[T ~int64 | ~int](buf *bytes.Buffer, v T) {
	buf.WriteByte('i')
	writeInt64(buf, v)
	buf.WriteByte('e')
}

// Encode appends the bencoded form of v to buf. The buffer may contain
// partial output when an error is returned.
func Encode(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case string:
		writeString(buf, val)
	case []byte:
		writeString(buf, val)
	case int:
		writeNumber(buf, val)
	case int64:
		writeNumber(buf, val)
	case uint16:
		writeNumber(buf, int64(val))
	case uint32:
		writeNumber(buf, int64(val))
	case uint64:
		if val > 1<<63-1 {
			return fmt.Errorf("%w: uint64 value %d overflows bencode integer", ErrUnsupportedType, val)
		}

		writeNumber(buf, int64(val))
	case []any:
		buf.WriteByte('l')

		for _, item := range val {
			if err := Encode(buf, item); err != nil {
				return err
			}
		}

		buf.WriteByte('e')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		buf.WriteByte('d')

		for _, k := range keys {
			writeString(buf, k)

			if err := Encode(buf, val[k]); err != nil {
				return err
			}
		}

		buf.WriteByte('e')
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}

	return nil
}

func EncodeBytes(v any) ([]byte, error) {
	var buf bytes.Buffer

	if err := Encode(&buf, v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
