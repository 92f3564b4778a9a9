package protocol

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Type tag bytes of the wire grammar
const (
	tagInline = '+'
	tagBulk   = '$'
	tagInt    = ':'
	tagFloat  = ','
	tagBool   = '#'
	tagNull   = '_'
	tagArray  = '*'
	tagMap    = '%'
	tagError  = '-'
)

// ETX terminates every server reply frame
const ETX byte = 0x03

// Serialize encodes a Go value into its wire representation. The supported
// type set mirrors the server's own: nil, booleans, integers, floats,
// strings, byte slices, arrays and string-keyed maps. Any other type is a
// caller programming error and yields an encoding error.
func Serialize(value interface{}) ([]byte, error) {
	return appendValue(nil, value)
}

func appendValue(dst []byte, value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return append(dst, tagNull, '\r', '\n'), nil

	case bool:
		if v {
			return append(dst, tagBool, 't', '\r', '\n'), nil
		}
		return append(dst, tagBool, 'f', '\r', '\n'), nil

	case string:
		return appendBulk(dst, []byte(v)), nil

	case []byte:
		return appendBulk(dst, v), nil

	case int:
		return appendInt(dst, int64(v)), nil
	case int8:
		return appendInt(dst, int64(v)), nil
	case int16:
		return appendInt(dst, int64(v)), nil
	case int32:
		return appendInt(dst, int64(v)), nil
	case int64:
		return appendInt(dst, v), nil
	case uint:
		return appendUnsigned(dst, uint64(v))
	case uint8:
		return appendInt(dst, int64(v)), nil
	case uint16:
		return appendInt(dst, int64(v)), nil
	case uint32:
		return appendInt(dst, int64(v)), nil
	case uint64:
		return appendUnsigned(dst, v)

	case float32:
		return appendFloat(dst, float64(v)), nil
	case float64:
		return appendFloat(dst, v), nil

	case []interface{}:
		return appendArray(dst, v)

	case []string:
		arr := make([]interface{}, len(v))
		for i, s := range v {
			arr[i] = s
		}
		return appendArray(dst, arr)

	case []int:
		arr := make([]interface{}, len(v))
		for i, n := range v {
			arr[i] = n
		}
		return appendArray(dst, arr)

	case []int64:
		arr := make([]interface{}, len(v))
		for i, n := range v {
			arr[i] = n
		}
		return appendArray(dst, arr)

	case []float64:
		arr := make([]interface{}, len(v))
		for i, f := range v {
			arr[i] = f
		}
		return appendArray(dst, arr)

	case map[string]interface{}:
		return appendMap(dst, v)

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, value)
	}
}

func appendBulk(dst []byte, data []byte) []byte {
	dst = append(dst, tagBulk)
	dst = strconv.AppendInt(dst, int64(len(data)), 10)
	dst = append(dst, '\r', '\n')
	dst = append(dst, data...)
	return append(dst, '\r', '\n')
}

func appendInt(dst []byte, v int64) []byte {
	dst = append(dst, tagInt)
	dst = strconv.AppendInt(dst, v, 10)
	return append(dst, '\r', '\n')
}

// appendUnsigned guards the conversion to the signed wire integer; values
// past MaxInt64 would flip sign silently
func appendUnsigned(dst []byte, v uint64) ([]byte, error) {
	if v > math.MaxInt64 {
		return nil, fmt.Errorf("%w: unsigned value %d exceeds the integer range", ErrUnsupportedType, v)
	}
	return appendInt(dst, int64(v)), nil
}

// appendFloat forces a ".0" onto integral floats so the server-side float
// tag survives a round trip
func appendFloat(dst []byte, v float64) []byte {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	dst = append(dst, tagFloat)
	dst = append(dst, s...)
	return append(dst, '\r', '\n')
}

func appendArray(dst []byte, values []interface{}) ([]byte, error) {
	dst = append(dst, tagArray)
	dst = strconv.AppendInt(dst, int64(len(values)), 10)
	dst = append(dst, '\r', '\n')

	var err error
	for _, item := range values {
		if dst, err = appendValue(dst, item); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// appendMap encodes entries in sorted key order so the output is
// deterministic regardless of Go's map iteration order
func appendMap(dst []byte, m map[string]interface{}) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dst = append(dst, tagMap)
	dst = strconv.AppendInt(dst, int64(len(m)), 10)
	dst = append(dst, '\r', '\n')

	var err error
	for _, k := range keys {
		dst = appendBulk(dst, []byte(k))
		if dst, err = appendValue(dst, m[k]); err != nil {
			return nil, err
		}
	}
	return dst, nil
}
