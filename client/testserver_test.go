package client

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zcached/zcached-go/common"
	"github.com/zcached/zcached-go/protocol"
)

// fakeServer is an in-process stand-in for a zcached server: a thread-safe
// map behind the real wire protocol. Scripted connection drops let tests
// exercise the client's recovery paths.
type fakeServer struct {
	ln   net.Listener
	addr string

	mu   sync.Mutex
	data map[string]interface{}

	// dropNext > 0 makes the server close the connection instead of
	// answering, once per unit
	dropNext atomic.Int32
}

func startServer(t *testing.T) *fakeServer {
	return startServerAt(t, "127.0.0.1:0")
}

// startServerAt binds to a specific address; tests that bring a server up
// after the client already failed against it need a predictable port
func startServerAt(t *testing.T, addr string) *fakeServer {
	t.Helper()

	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err)

	s := &fakeServer{
		ln:   ln,
		addr: ln.Addr().String(),
		data: make(map[string]interface{}),
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *fakeServer) config(t *testing.T) common.ClientConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(s.addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := common.DefaultConfig(host, port)
	cfg.ConnectionAttempts = 1
	cfg.TimeoutSecond = 2
	return cfg
}

func (s *fakeServer) serve(conn net.Conn) {
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

			if s.dropNext.Load() > 0 {
				s.dropNext.Add(-1)
				return
			}

			reply := s.handle(name, request[1:])
			if _, err := conn.Write(reply); err != nil {
				return
			}
		}
	}
}

func (s *fakeServer) handle(name string, args []interface{}) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case protocol.CmdPing:
		return encodeReply("PONG")

	case protocol.CmdGet:
		key := args[0].(string)
		value, ok := s.data[key]
		if !ok {
			return encodeError(common.NotFound(key))
		}
		return encodeReply(value)

	case protocol.CmdSet:
		s.data[args[0].(string)] = args[1]
		return encodeReply("OK")

	case protocol.CmdDelete:
		key := args[0].(string)
		if _, ok := s.data[key]; !ok {
			return encodeError(common.NotFound(key))
		}
		delete(s.data, key)
		return encodeReply("OK")

	case protocol.CmdMGet:
		result := make(map[string]interface{}, len(args))
		for _, arg := range args {
			key := arg.(string)
			result[key] = s.data[key] // nil when absent
		}
		return encodeReply(result)

	case protocol.CmdMSet:
		for i := 0; i+1 < len(args); i += 2 {
			s.data[args[i].(string)] = args[i+1]
		}
		return encodeReply("OK")

	case protocol.CmdKeys:
		keys := make([]interface{}, 0, len(s.data))
		for k := range s.data {
			keys = append(keys, k)
		}
		return encodeReply(keys)

	case protocol.CmdDBSize:
		return encodeReply(int64(len(s.data)))

	case protocol.CmdFlush:
		s.data = make(map[string]interface{})
		return encodeReply("OK")

	case protocol.CmdSave:
		return encodeReply("OK")

	case protocol.CmdLastSave:
		return encodeReply(time.Now().Unix())

	default:
		return encodeError(common.UnknownCommand(name))
	}
}

func encodeReply(value interface{}) []byte {
	frame, err := protocol.Serialize(value)
	if err != nil {
		return encodeError(common.ServerErrUnexpected)
	}
	return append(frame, protocol.ETX)
}

func encodeError(message string) []byte {
	frame := append([]byte{'-'}, message...)
	frame = append(frame, '\r', '\n')
	return append(frame, protocol.ETX)
}
