package transport

import (
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zcached/zcached-go/common"
	"github.com/zcached/zcached-go/protocol"
)

// fakeHandler maps one decoded request to a raw reply frame. Returning nil
// makes the server drop the connection instead of answering.
type fakeHandler func(name string, args []interface{}) []byte

// startFakeServer runs a minimal in-process server speaking the cache wire
// protocol. It decodes each request array and feeds it to the handler. The
// listener is torn down via t.Cleanup.
func startFakeServer(t *testing.T, handle fakeHandler) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveFakeConn(conn, handle)
		}
	}()

	return ln.Addr().String()
}

func serveFakeConn(conn net.Conn, handle fakeHandler) {
	defer conn.Close()

	var buf []byte
	chunk := make([]byte, 512)
	for {
		n, err := conn.Read(chunk)
		if err != nil {
			return
		}
		buf = append(buf, chunk[:n]...)

		for len(buf) > 0 {
			value, consumed, err := protocol.Deserialize(buf)
			if errors.Is(err, protocol.ErrIncomplete) {
				break
			}
			if err != nil {
				return
			}
			buf = buf[consumed:]

			request, ok := value.([]interface{})
			if !ok || len(request) == 0 {
				return
			}
			name, _ := request[0].(string)

			reply := handle(name, request[1:])
			if reply == nil {
				return
			}
			if _, err := conn.Write(reply); err != nil {
				return
			}
		}
	}
}

// startChunkedServer answers every request with the given reply, written in
// two segments with a pause in between. Exercises partial-read assembly.
func startChunkedServer(t *testing.T, reply []byte, splitAt int, pause time.Duration) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				chunk := make([]byte, 512)
				for {
					if _, err := c.Read(chunk); err != nil {
						return
					}
					if _, err := c.Write(reply[:splitAt]); err != nil {
						return
					}
					time.Sleep(pause)
					if _, err := c.Write(reply[splitAt:]); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	return ln.Addr().String()
}

// okReply encodes a value as a complete reply frame
func okReply(t *testing.T, value interface{}) []byte {
	t.Helper()
	frame, err := protocol.Serialize(value)
	require.NoError(t, err)
	return append(frame, protocol.ETX)
}

// errReply builds a server error reply frame
func errReply(message string) []byte {
	frame := append([]byte{'-'}, message...)
	frame = append(frame, '\r', '\n')
	return append(frame, protocol.ETX)
}

// pongHandler answers every PING with PONG and fails everything else
func pongHandler(t *testing.T) fakeHandler {
	return func(name string, args []interface{}) []byte {
		if name == protocol.CmdPing {
			return okReply(t, "PONG")
		}
		return errReply(common.UnknownCommand(name))
	}
}

// testConfig returns a client configuration pointed at the fake server
func testConfig(t *testing.T, addr string) common.ClientConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := common.DefaultConfig(host, port)
	cfg.ConnectionAttempts = 1
	cfg.TimeoutSecond = 2
	return cfg
}
