// Package protocol implements the zcached wire codec: serialization of Go
// values and commands into the byte framing the server expects, and
// deserialization of raw server replies into typed values.
//
// The grammar is RESP3-flavored. Every value is introduced by a single type
// tag byte:
//
//	+<text>\r\n                      inline string (replies only)
//	$<len>\r\n<bytes>\r\n            bulk string
//	:<int>\r\n                       integer
//	,<float>\r\n                     float
//	#t\r\n / #f\r\n                  boolean
//	_\r\n                            null
//	*<n>\r\n<value>...               array
//	%<n>\r\n($<len>\r\n<k>\r\n<v>)...  map with bulk-string keys
//	-<message>\r\n                   server error (replies only)
//
// Requests are arrays of bulk strings (command name, keys) and fully encoded
// values. Replies are terminated by a trailing ETX byte (0x03), which the
// decoder treats as a frame-boundary hint and strips.
//
// The decoder distinguishes two failure modes that callers must treat very
// differently: ErrIncomplete means the buffer holds a truncated frame and
// more bytes must be read before retrying; ErrMalformed means the bytes can
// never form a valid frame and the connection should be considered broken.
//
// All functions in this package are stateless and safe for concurrent use.
package protocol
