package bencode

import (
	"strconv"
)

// Decode parses a complete bencoded value. Byte strings decode as string,
// integers as int64, lists as []any and dictionaries as map[string]any.
// Decoding is strict: trailing bytes, unterminated containers, malformed
// length prefixes and non-string dictionary keys all fail with ErrMalformed.
func Decode(data []byte) (any, error) {
	d := &decoder{data: data}

	v, err := d.value()
	if err != nil {
		return nil, err
	}

	if d.pos != len(d.data) {
		return nil, errMalformedf("trailing data at offset %d", d.pos)
	}

	return v, nil
}

// DecodeDict is Decode restricted to a top-level dictionary, the only legal
// top-level value for .torrent metadata and tracker responses.
func DecodeDict(data []byte) (Dict, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}

	dict, ok := v.(Dict)
	if !ok {
		return nil, errMalformedf("top-level value is not a dictionary")
	}

	return dict, nil
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) value() (any, error) {
	if d.pos >= len(d.data) {
		return nil, errMalformedf("unexpected end of data at offset %d", d.pos)
	}

	switch c := d.data[d.pos]; {
	case c == 'i':
		return d.integer()
	case c >= '0' && c <= '9':
		return d.byteString()
	case c == 'l':
		return d.list()
	case c == 'd':
		return d.dict()
	default:
		return nil, errMalformedf("unexpected byte %q at offset %d", c, d.pos)
	}
}

func (d *decoder) integer() (int64, error) {
	start := d.pos
	d.pos++ // consume 'i'

	end := d.pos
	for end < len(d.data) && d.data[end] != 'e' {
		end++
	}

	if end >= len(d.data) {
		return 0, errMalformedf("unterminated integer at offset %d", start)
	}

	digits := string(d.data[d.pos:end])

	if len(digits) == 0 {
		return 0, errMalformedf("empty integer at offset %d", start)
	}

	unsigned := digits
	if digits[0] == '-' {
		unsigned = digits[1:]
	}

	switch {
	// ParseInt would accept a leading '+', the wire format does not.
	case digits[0] == '+':
		return 0, errMalformedf("plus sign in integer at offset %d", start)
	case len(unsigned) == 0:
		return 0, errMalformedf("bare sign in integer at offset %d", start)
	case unsigned == "0" && digits[0] == '-':
		return 0, errMalformedf("negative zero at offset %d", start)
	case len(unsigned) > 1 && unsigned[0] == '0':
		return 0, errMalformedf("leading zero in integer at offset %d", start)
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, errMalformedf("invalid integer %q at offset %d", digits, start)
	}

	d.pos = end + 1 // consume 'e'

	return n, nil
}

func (d *decoder) byteString() (string, error) {
	start := d.pos

	end := d.pos
	for end < len(d.data) && d.data[end] != ':' {
		end++
	}

	if end >= len(d.data) {
		return "", errMalformedf("unterminated string length at offset %d", start)
	}

	digits := string(d.data[d.pos:end])
	if len(digits) > 1 && digits[0] == '0' {
		return "", errMalformedf("leading zero in string length at offset %d", start)
	}

	length, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return "", errMalformedf("invalid string length %q at offset %d", digits, start)
	}

	d.pos = end + 1 // consume ':'

	if int64(len(d.data)-d.pos) < length {
		return "", errMalformedf("string at offset %d truncated, want %d bytes", start, length)
	}

	s := string(d.data[d.pos : d.pos+int(length)])
	d.pos += int(length)

	return s, nil
}

func (d *decoder) list() (List, error) {
	start := d.pos
	d.pos++ // consume 'l'

	list := List{}

	for {
		if d.pos >= len(d.data) {
			return nil, errMalformedf("unterminated list at offset %d", start)
		}

		if d.data[d.pos] == 'e' {
			d.pos++
			return list, nil
		}

		v, err := d.value()
		if err != nil {
			return nil, err
		}

		list = append(list, v)
	}
}

func (d *decoder) dict() (Dict, error) {
	start := d.pos
	d.pos++ // consume 'd'

	dict := Dict{}

	for {
		if d.pos >= len(d.data) {
			return nil, errMalformedf("unterminated dictionary at offset %d", start)
		}

		if d.data[d.pos] == 'e' {
			d.pos++
			return dict, nil
		}

		if c := d.data[d.pos]; c < '0' || c > '9' {
			return nil, errMalformedf("non-string dictionary key at offset %d", d.pos)
		}

		key, err := d.byteString()
		if err != nil {
			return nil, err
		}

		v, err := d.value()
		if err != nil {
			return nil, err
		}

		dict[key] = v
	}
}
