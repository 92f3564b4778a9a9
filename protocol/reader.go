package protocol

import "bytes"

// Reader is a cursor over a reply buffer. All read methods return
// ErrIncomplete instead of blocking when the buffer runs out, which lets the
// connection layer read more bytes and retry the parse.
type Reader struct {
	buf []byte
	pos int
}

// NewReader creates a Reader over the given payload
func NewReader(payload []byte) *Reader {
	return &Reader{buf: payload}
}

// ReadByte consumes and returns a single byte
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, ErrIncomplete
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadN consumes exactly n bytes
func (r *Reader) ReadN(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrMalformed
	}
	if r.pos+n > len(r.buf) {
		return nil, ErrIncomplete
	}
	data := r.buf[r.pos : r.pos+n]
	r.pos += n
	return data, nil
}

// ReadLine consumes bytes up to and including the next line feed and returns
// the line without its terminator. A carriage return before the line feed is
// stripped as well.
func (r *Reader) ReadLine() ([]byte, error) {
	idx := bytes.IndexByte(r.buf[r.pos:], '\n')
	if idx < 0 {
		return nil, ErrIncomplete
	}
	line := r.buf[r.pos : r.pos+idx]
	r.pos += idx + 1
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, nil
}

// ExpectCRLF consumes a line terminator and fails with ErrMalformed if the
// next bytes are anything else
func (r *Reader) ExpectCRLF() error {
	if r.pos >= len(r.buf) {
		return ErrIncomplete
	}
	if r.buf[r.pos] == '\n' {
		r.pos++
		return nil
	}
	if r.buf[r.pos] == '\r' {
		if r.pos+1 >= len(r.buf) {
			return ErrIncomplete
		}
		if r.buf[r.pos+1] == '\n' {
			r.pos += 2
			return nil
		}
	}
	return ErrMalformed
}

// Pos returns how many bytes have been consumed so far
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns how many bytes are left unread
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}
