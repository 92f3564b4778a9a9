package transport

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/zcached/zcached-go/common"
	"github.com/zcached/zcached-go/protocol"
)

// --------------------------------------------------------------------------
// Connection states
// --------------------------------------------------------------------------

// State is the lifecycle state of a Connection
type State int32

const (
	// StateDisconnected is the initial state, before the first Connect
	StateDisconnected State = iota
	// StateConnected means the socket is established and usable
	StateConnected
	// StateBroken means an I/O failure occurred; the connection must be
	// reconnected before it can carry another request
	StateBroken
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateBroken:
		return "broken"
	}
	return "unknown"
}

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

var connLogger = common.GetLogger("transport")

// Connection owns exactly one socket to one endpoint for its whole lifetime.
// RoundTrip holds the connection lock across send and receive, so several
// goroutines may share one connection; their round trips queue up instead of
// interleaving on the wire.
type Connection struct {
	id        string
	config    common.ClientConfig
	connector IClientConnector

	mu       sync.Mutex
	conn     net.Conn
	residual []byte

	state   atomic.Int32
	pending *xsync.Counter
}

// NewConnection creates a connection in the Disconnected state. No I/O
// happens until Connect is called.
func NewConnection(config common.ClientConfig) (*Connection, error) {
	connector, err := NewConnector(config.Network)
	if err != nil {
		return nil, err
	}
	return &Connection{
		id:        newConnectionID(),
		config:    config,
		connector: connector,
		pending:   xsync.NewCounter(),
	}, nil
}

// newConnectionID returns a short random tag used in log lines to tell
// pool members apart
func newConnectionID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, 6)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

// ID returns the connection's random identifier
func (c *Connection) ID() string {
	return c.id
}

// Endpoint returns the address this connection dials
func (c *Connection) Endpoint() string {
	return c.config.Endpoint()
}

// State returns the current lifecycle state
func (c *Connection) State() State {
	return State(c.state.Load())
}

// Pending returns the number of operations currently holding this connection
func (c *Connection) Pending() int64 {
	return c.pending.Value()
}

func (c *Connection) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Connection) timeout() time.Duration {
	return time.Duration(c.config.TimeoutSecond) * time.Second
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Connect dials the endpoint, retrying with exponential backoff up to the
// configured number of attempts. On success the connection transitions to
// Connected; on exhaustion it stays in its previous state and the last dial
// error is returned.
func (c *Connection) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Connection) connectLocked() error {
	attempts := c.config.ConnectionAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := NewExponentialBackoff(100*time.Millisecond, 2.0, 2*time.Second)

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(backoff.Next())
		}

		conn, err := c.connector.Connect(c.config.Endpoint(), c.timeout())
		if err != nil {
			lastErr = err
			connLogger.Debugf("[%s] dial %s failed (attempt %d/%d): %v",
				c.id, c.config.Endpoint(), i+1, attempts, err)
			continue
		}
		if err := c.connector.UpgradeConnection(conn, c.config); err != nil {
			_ = conn.Close()
			lastErr = err
			continue
		}

		c.conn = conn
		c.residual = nil
		c.setState(StateConnected)
		connLogger.Debugf("[%s] connected to %s via %s",
			c.id, c.config.Endpoint(), c.connector.GetName())
		return nil
	}

	return fmt.Errorf("connect to %s failed after %d attempts: %w",
		c.config.Endpoint(), attempts, lastErr)
}

// TryReconnect tears down the current socket and dials again. It fails
// immediately when reconnection is disabled in the configuration. When a
// concurrent caller already restored the connection it returns nil without
// dialing again.
func (c *Connection) TryReconnect() error {
	if !c.config.Reconnect {
		return common.ErrConnectionClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateConnected {
		return nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	if err := c.connectLocked(); err != nil {
		c.setState(StateBroken)
		return err
	}
	return nil
}

// Close terminates the connection. Safe to call multiple times.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateDisconnected && c.conn == nil {
		return nil
	}
	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	c.residual = nil
	c.setState(StateDisconnected)
	return err
}

// --------------------------------------------------------------------------
// Request / response
// --------------------------------------------------------------------------

// Send encodes the command and writes the full request frame. A write
// failure marks the connection Broken.
func (c *Connection) Send(cmd protocol.Command) error {
	frame, err := cmd.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(frame)
}

func (c *Connection) sendLocked(frame []byte) error {
	if c.conn == nil || c.State() != StateConnected {
		return common.ErrConnectionClosed
	}

	if t := c.timeout(); t > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(t)); err != nil {
			return err
		}
	}
	if _, err := c.conn.Write(frame); err != nil {
		c.setState(StateBroken)
		connLogger.Debugf("[%s] write failed: %v", c.id, err)
		return fmt.Errorf("%w: %v", common.ErrConnectionClosed, err)
	}
	return nil
}

// Receive reads from the socket until one complete reply frame is decoded.
// Partial TCP reads are accumulated; bytes past the frame are kept for the
// next call. A server error frame is returned as *protocol.ServerError and
// leaves the connection Connected. Timeouts and transport failures mark the
// connection Broken.
func (c *Connection) Receive() (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receiveLocked()
}

func (c *Connection) receiveLocked() (interface{}, error) {
	if c.conn == nil || c.State() != StateConnected {
		return nil, common.ErrConnectionClosed
	}

	if t := c.timeout(); t > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(t)); err != nil {
			return nil, err
		}
	}

	chunkSize := c.config.BufferSize
	if chunkSize <= 0 {
		chunkSize = 2048
	}
	chunk := make([]byte, chunkSize)

	for {
		if len(c.residual) > 0 {
			value, consumed, err := protocol.DecodeFrame(c.residual)
			if err == nil {
				c.residual = c.residual[consumed:]
				return value, nil
			}
			var serverErr *protocol.ServerError
			if errors.As(err, &serverErr) {
				c.residual = c.residual[consumed:]
				return nil, serverErr
			}
			if !errors.Is(err, protocol.ErrIncomplete) {
				c.setState(StateBroken)
				connLogger.Warningf("[%s] malformed reply, dropping connection: %v", c.id, err)
				return nil, fmt.Errorf("%w: %v", common.ErrConnectionClosed, err)
			}
		}

		n, err := c.conn.Read(chunk)
		if n > 0 {
			c.residual = append(c.residual, chunk[:n]...)
		}
		if err != nil {
			c.setState(StateBroken)
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				connLogger.Debugf("[%s] receive timed out", c.id)
				return nil, common.ErrTimeoutLimit
			}
			if errors.Is(err, io.EOF) {
				connLogger.Debugf("[%s] connection closed by server", c.id)
				return nil, common.ErrConnectionClosed
			}
			return nil, fmt.Errorf("%w: %v", common.ErrConnectionClosed, err)
		}
	}
}

// RoundTrip sends the command and waits for its reply, holding the
// connection lock for the whole exchange so concurrent round trips on a
// shared connection queue instead of mixing their frames. The sent flag
// reports whether the request reached the wire; it lets the caller decide
// whether a retry could duplicate the operation on the server.
func (c *Connection) RoundTrip(cmd protocol.Command) (reply interface{}, sent bool, err error) {
	frame, err := cmd.Encode()
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.sendLocked(frame); err != nil {
		return nil, false, err
	}
	reply, err = c.receiveLocked()
	return reply, true, err
}

// IsAlive probes the connection with a PING round trip. It only reports
// liveness; the caller decides whether to reconnect.
func (c *Connection) IsAlive() bool {
	if c.State() != StateConnected {
		return false
	}
	reply, _, err := c.RoundTrip(protocol.NewPingCommand())
	return err == nil && reply == "PONG"
}
