package protocol

import (
	"errors"
	"reflect"
	"testing"
)

// decodeVectors are reply payloads paired with their decoded values. The
// byte strings match what the server actually emits.
var decodeVectors = []struct {
	name string
	buf  string
	want interface{}
}{
	{"bulk string", "$7\r\ntest123\r\n", "test123"},
	{"bulk with spaces", "$11\r\nhello world\r\n", "hello world"},
	{"inline string", "+PONG\r\n", "PONG"},
	{"int", ":420\r\n", int64(420)},
	{"negative int", ":-5\r\n", int64(-5)},
	{"float", ",5\r\n", 5.0},
	{"bool true", "#t\r\n", true},
	{"bool false", "#f\r\n", false},
	{"null", "_\r\n", nil},
	{
		"mixed array",
		"*6\r\n,5\r\n,1\r\n#f\r\n:10\r\n_\r\n$5\r\narray\r\n",
		[]interface{}{5.0, 1.0, false, int64(10), nil, "array"},
	},
	{
		"map",
		"%3\r\n$1\r\n2\r\n$5\r\nhello\r\n$1\r\n1\r\n:50\r\n$1\r\n5\r\n,-5\r\n",
		map[string]interface{}{"2": "hello", "1": int64(50), "5": -5.0},
	},
	{
		"nested map",
		"%1\r\n$3\r\npik\r\n*3\r\n_\r\n#f\r\n*2\r\n:1\r\n:2\r\n",
		map[string]interface{}{"pik": []interface{}{nil, false, []interface{}{int64(1), int64(2)}}},
	},
	{"bulk containing crlf", "$9\r\nab\r\ncd\r\ne\r\n", "ab\r\ncd\r\ne"},
}

// TestDeserialize decodes every vector whole and checks full consumption
func TestDeserialize(t *testing.T) {
	for _, tc := range decodeVectors {
		t.Run(tc.name, func(t *testing.T) {
			got, consumed, err := Deserialize([]byte(tc.buf))
			if err != nil {
				t.Fatalf("Deserialize(%q) failed: %v", tc.buf, err)
			}
			if consumed != len(tc.buf) {
				t.Errorf("consumed %d of %d bytes", consumed, len(tc.buf))
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Deserialize(%q) = %#v, want %#v", tc.buf, got, tc.want)
			}
		})
	}
}

// TestDeserializePartialFrames feeds every vector truncated at each possible
// boundary point. Every strict prefix must report ErrIncomplete — never a
// malformed frame, never a bogus value.
func TestDeserializePartialFrames(t *testing.T) {
	for _, tc := range decodeVectors {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < len(tc.buf); i++ {
				_, _, err := Deserialize([]byte(tc.buf[:i]))
				if !errors.Is(err, ErrIncomplete) {
					t.Fatalf("prefix of %d bytes: got %v, want ErrIncomplete", i, err)
				}
			}
		})
	}
}

// TestRoundTrip verifies decode(encode(x)) == x for every representable type
func TestRoundTrip(t *testing.T) {
	values := []interface{}{
		nil,
		true,
		false,
		int64(0),
		int64(-42),
		int64(1 << 50),
		3.25,
		-0.001,
		5.0,
		"",
		"round trip",
		"with\r\nnewlines",
		[]interface{}{},
		[]interface{}{int64(1), "two", 3.0, nil, true},
		map[string]interface{}{},
		map[string]interface{}{
			"dogs":   []interface{}{"Pimpek", "Laika"},
			"count":  int64(2),
			"rating": 9.5,
			"adopted": map[string]interface{}{
				"Pimpek": true,
			},
		},
	}

	for _, v := range values {
		encoded, err := Serialize(v)
		if err != nil {
			t.Fatalf("Serialize(%#v) failed: %v", v, err)
		}
		decoded, consumed, err := Deserialize(encoded)
		if err != nil {
			t.Fatalf("Deserialize(%q) failed: %v", encoded, err)
		}
		if consumed != len(encoded) {
			t.Errorf("consumed %d of %d bytes for %#v", consumed, len(encoded), v)
		}
		if !reflect.DeepEqual(decoded, v) {
			t.Errorf("round trip changed value: %#v -> %#v", v, decoded)
		}
	}
}

// TestDecodeFrame covers frame-level concerns: the ETX sentinel, error
// replies and back-to-back frames
func TestDecodeFrame(t *testing.T) {
	t.Run("etx stripped", func(t *testing.T) {
		value, consumed, err := DecodeFrame([]byte("+PONG\r\n\x03"))
		if err != nil {
			t.Fatalf("DecodeFrame failed: %v", err)
		}
		if value != "PONG" || consumed != 8 {
			t.Errorf("got (%v, %d), want (PONG, 8)", value, consumed)
		}
	})

	t.Run("server error", func(t *testing.T) {
		buf := []byte("-ERR 'dogs' not found\r\n\x03")
		_, consumed, err := DecodeFrame(buf)
		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("got %v, want *ServerError", err)
		}
		if serverErr.Message != "ERR 'dogs' not found" {
			t.Errorf("message = %q", serverErr.Message)
		}
		if consumed != len(buf) {
			t.Errorf("consumed %d of %d", consumed, len(buf))
		}
	})

	t.Run("two frames in one read", func(t *testing.T) {
		buf := []byte(":1\r\n\x03:2\r\n\x03")
		first, consumed, err := DecodeFrame(buf)
		if err != nil || first != int64(1) {
			t.Fatalf("first frame: (%v, %v)", first, err)
		}
		second, n, err := DecodeFrame(buf[consumed:])
		if err != nil || second != int64(2) {
			t.Fatalf("second frame: (%v, %v)", second, err)
		}
		if consumed+n != len(buf) {
			t.Errorf("frames consumed %d of %d bytes", consumed+n, len(buf))
		}
	})

	t.Run("empty buffer needs data", func(t *testing.T) {
		if _, _, err := DecodeFrame(nil); !errors.Is(err, ErrIncomplete) {
			t.Errorf("got %v, want ErrIncomplete", err)
		}
	})

	// a TCP read can split a frame from its own sentinel, leaving the ETX
	// at the front of the next buffer
	t.Run("leading sentinel from previous frame", func(t *testing.T) {
		buf := []byte("\x03+PONG\r\n\x03")
		value, consumed, err := DecodeFrame(buf)
		if err != nil {
			t.Fatalf("DecodeFrame failed: %v", err)
		}
		if value != "PONG" || consumed != len(buf) {
			t.Errorf("got (%v, %d), want (PONG, %d)", value, consumed, len(buf))
		}
	})

	t.Run("sentinel alone needs data", func(t *testing.T) {
		if _, _, err := DecodeFrame([]byte{ETX}); !errors.Is(err, ErrIncomplete) {
			t.Errorf("got %v, want ErrIncomplete", err)
		}
	})
}

// TestDeserializeMalformed checks that impossible prefixes are rejected as
// malformed, not retried forever as incomplete
func TestDeserializeMalformed(t *testing.T) {
	testCases := []struct {
		name string
		buf  string
	}{
		{"unknown tag", "?5\r\n"},
		{"non-numeric int", ":abc\r\n"},
		{"non-numeric length", "$x\r\n"},
		{"negative length", "$-1\r\nx\r\n"},
		{"bad bool literal", "#x\r\n"},
		{"bulk without terminator", "$3\r\nabcXY"},
		{"non-string map key", "%1\r\n:1\r\n:2\r\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Deserialize([]byte(tc.buf))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("Deserialize(%q) = %v, want ErrMalformed", tc.buf, err)
			}
		})
	}
}
