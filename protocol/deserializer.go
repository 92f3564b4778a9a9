package protocol

import (
	"errors"
	"strconv"
)

// --------------------------------------------------------------------------
// Decode errors
// --------------------------------------------------------------------------

var (
	// ErrIncomplete reports a truncated frame: the caller should read more
	// bytes from the socket and retry the parse. Not a protocol violation.
	ErrIncomplete = errors.New("incomplete frame: need more data")

	// ErrMalformed reports bytes that can never form a valid frame. The
	// connection they came from must be considered broken.
	ErrMalformed = errors.New("malformed frame")

	// ErrUnsupportedType reports a value outside the protocol's representable
	// type set. This is a caller programming error, not a runtime condition.
	ErrUnsupportedType = errors.New("unsupported value type")
)

// ServerError is a reply frame carrying a server-reported error message.
// The message is preserved verbatim.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// --------------------------------------------------------------------------
// Frame decoding
// --------------------------------------------------------------------------

// DecodeFrame decodes one reply frame from the front of buf. It returns the
// decoded value and the number of bytes consumed, including the trailing ETX
// byte when present. A server error frame yields a *ServerError as err with
// consumed still reporting the frame length.
//
// A TCP read may deliver a partial frame, exactly one frame, or several
// frames back to back; the consumed count and the ErrIncomplete sentinel let
// the caller loop correctly in all three cases without losing bytes. A read
// may also split a frame from its own sentinel, leaving a stray ETX at the
// front of the next buffer; leading sentinels are skipped, never treated as
// a malformed type tag.
func DecodeFrame(buf []byte) (value interface{}, consumed int, err error) {
	skipped := 0
	for skipped < len(buf) && buf[skipped] == ETX {
		skipped++
	}
	buf = buf[skipped:]

	r := NewReader(buf)

	first, err := r.ReadByte()
	if err != nil {
		return nil, 0, err
	}

	if first == tagError {
		line, err := r.ReadLine()
		if err != nil {
			return nil, 0, err
		}
		return nil, skipped + consumeETX(buf, r.Pos()), &ServerError{Message: string(line)}
	}

	value, err = decodeValue(r, first)
	if err != nil {
		return nil, 0, err
	}
	return value, skipped + consumeETX(buf, r.Pos()), nil
}

// Deserialize decodes a single value (without error-frame or ETX handling).
// Used directly by tests and by callers that already hold a whole frame.
func Deserialize(buf []byte) (interface{}, int, error) {
	r := NewReader(buf)
	first, err := r.ReadByte()
	if err != nil {
		return nil, 0, err
	}
	value, err := decodeValue(r, first)
	if err != nil {
		return nil, 0, err
	}
	return value, r.Pos(), nil
}

// consumeETX extends the consumed count over a trailing frame sentinel
func consumeETX(buf []byte, pos int) int {
	if pos < len(buf) && buf[pos] == ETX {
		return pos + 1
	}
	return pos
}

// --------------------------------------------------------------------------
// Value decoding
// --------------------------------------------------------------------------

func decodeValue(r *Reader, tag byte) (interface{}, error) {
	switch tag {
	case tagInline:
		line, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		return string(line), nil

	case tagBulk:
		return decodeBulk(r)

	case tagInt:
		line, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(string(line), 10, 64)
		if err != nil {
			return nil, ErrMalformed
		}
		return n, nil

	case tagFloat:
		line, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(string(line), 64)
		if err != nil {
			return nil, ErrMalformed
		}
		return f, nil

	case tagBool:
		line, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		switch string(line) {
		case "t":
			return true, nil
		case "f":
			return false, nil
		default:
			return nil, ErrMalformed
		}

	case tagNull:
		if _, err := r.ReadLine(); err != nil {
			return nil, err
		}
		return nil, nil

	case tagArray:
		size, err := decodeSize(r)
		if err != nil {
			return nil, err
		}
		arr := make([]interface{}, 0, size)
		for i := 0; i < size; i++ {
			first, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			item, err := decodeValue(r, first)
			if err != nil {
				return nil, err
			}
			arr = append(arr, item)
		}
		return arr, nil

	case tagMap:
		size, err := decodeSize(r)
		if err != nil {
			return nil, err
		}
		m := make(map[string]interface{}, size)
		for i := 0; i < size; i++ {
			first, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			key, err := decodeValue(r, first)
			if err != nil {
				return nil, err
			}
			keyStr, ok := key.(string)
			if !ok {
				// the server only emits string keys
				return nil, ErrMalformed
			}
			first, err = r.ReadByte()
			if err != nil {
				return nil, err
			}
			val, err := decodeValue(r, first)
			if err != nil {
				return nil, err
			}
			m[keyStr] = val
		}
		return m, nil

	default:
		return nil, ErrMalformed
	}
}

func decodeBulk(r *Reader) (string, error) {
	size, err := decodeSize(r)
	if err != nil {
		return "", err
	}
	data, err := r.ReadN(size)
	if err != nil {
		return "", err
	}
	if err := r.ExpectCRLF(); err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeSize(r *Reader) (int, error) {
	line, err := r.ReadLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(string(line))
	if err != nil || n < 0 {
		return 0, ErrMalformed
	}
	return n, nil
}
