package client

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zcached/zcached-go/common"
	"github.com/zcached/zcached-go/protocol"
	"github.com/zcached/zcached-go/transport"
)

var logger = common.GetLogger("client")

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// Client is the blocking facade over the connection pool. Every command
// returns a Result; the zero-value error cases of the transport are folded
// into failed Results, never panics.
//
// All methods are safe for concurrent use.
type Client struct {
	config common.ClientConfig
	pool   *transport.Pool

	runMu sync.Mutex
	ready bool
}

// New creates a client for the given configuration. An invalid
// configuration is a programming error and panics. No connection is opened
// until Run or the first command.
func New(config common.ClientConfig) *Client {
	if err := config.Validate(); err != nil {
		panic(err)
	}

	pool := transport.NewPool(config.PoolSize, func() (*transport.Connection, error) {
		return transport.NewConnection(config)
	})

	return &Client{
		config: config,
		pool:   pool,
	}
}

// Run eagerly establishes the pool's connections. Optional: the first
// command runs the client implicitly. It fails when not a single connection
// could be established, but a failed Run is not final; every later command
// and Run call tries the endpoint again, so a client created against a
// server that is down recovers once the server returns.
func (c *Client) Run() error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.ready || c.pool.IsWorking() {
		c.ready = true
		return nil
	}
	if connected := c.pool.Setup(); connected == 0 {
		return fmt.Errorf("%w: could not reach %s",
			common.ErrNoAvailableConnections, c.config.Endpoint())
	}
	c.ready = true
	return nil
}

// Close terminates every pooled connection. The client must not be used
// afterwards.
func (c *Client) Close() {
	c.pool.Close()
}

// Pool exposes the underlying connection pool for maintenance operations
// (resizing, cleanup, health counts)
func (c *Client) Pool() *transport.Pool {
	return c.pool
}

// IsAlive reports whether the client can currently reach the server. A pool
// with no Connected member short-circuits to false without touching the
// network; otherwise a PING round trip decides.
func (c *Client) IsAlive() bool {
	if err := c.Run(); err != nil {
		return false
	}
	if !c.pool.IsWorking() {
		return false
	}
	return c.Ping().Ok()
}

// --------------------------------------------------------------------------
// Execution core
// --------------------------------------------------------------------------

// execute performs one command round trip with the recovery policy:
//   - pool exhausted: one pool-wide Reconnect, then one more Acquire
//   - send failed: one pool-wide Reconnect, then one retry
//   - reply lost mid-flight: reconnect the connection; idempotent commands
//     are resent once, mutating ones surface ErrConnectionReestablished
//     because the server may already have applied them
//   - server error replies pass through verbatim and trigger no reconnect
func (c *Client) execute(cmd protocol.Command) (interface{}, error) {
	if err := c.Run(); err != nil {
		return nil, err
	}

	conn, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(conn)

	reply, sent, err := conn.RoundTrip(cmd)
	if err == nil {
		return reply, nil
	}

	var serverErr *protocol.ServerError
	if errors.As(err, &serverErr) {
		return nil, serverErr
	}
	if errors.Is(err, common.ErrTimeoutLimit) {
		return nil, err
	}

	if !sent {
		// nothing reached the wire, any command may retry once
		logger.Debugf("[%s] send %s failed, reconnecting: %v", conn.ID(), cmd.Name, err)
		c.pool.Reconnect()
		if reconnectErr := conn.TryReconnect(); reconnectErr != nil {
			return nil, err
		}
		reply, _, err = conn.RoundTrip(cmd)
		return reply, err
	}

	// the connection dropped before the reply arrived
	logger.Debugf("[%s] connection lost during %s: %v", conn.ID(), cmd.Name, err)
	if reconnectErr := conn.TryReconnect(); reconnectErr != nil {
		return nil, err
	}
	if !cmd.Idempotent() {
		// the server may have applied the command already; resending
		// could apply it twice
		return nil, common.ErrConnectionReestablished
	}
	reply, _, err = conn.RoundTrip(cmd)
	return reply, err
}

func (c *Client) acquire() (*transport.Connection, error) {
	conn, err := c.pool.Acquire()
	if err == nil {
		return conn, nil
	}
	if !errors.Is(err, common.ErrNoAvailableConnections) {
		return nil, err
	}
	if c.pool.Reconnect() == 0 {
		return nil, err
	}
	return c.pool.Acquire()
}

// run executes a command and converts the raw reply into the typed Result
func run[T any](c *Client, cmd protocol.Command, convert func(interface{}) (T, error)) Result[T] {
	start := time.Now()

	reply, err := c.execute(cmd)
	if err != nil {
		observe(cmd.Name, start, true)
		return FailResult[T](err)
	}

	value, err := convert(reply)
	if err != nil {
		observe(cmd.Name, start, true)
		return FailResult[T](err)
	}
	observe(cmd.Name, start, false)
	return OkResult(value)
}

// --------------------------------------------------------------------------
// Reply conversions
// --------------------------------------------------------------------------

func asAny(v interface{}) (interface{}, error) {
	return v, nil
}

func asString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected reply type %T, want string", v)
	}
	return s, nil
}

func asInt(v interface{}) (int64, error) {
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected reply type %T, want integer", v)
	}
	return n, nil
}

func asFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("unexpected reply type %T, want float", v)
}

func asBool(v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected reply type %T, want boolean", v)
	}
	return b, nil
}

func asStringSlice(v interface{}) ([]string, error) {
	arr, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected reply type %T, want array", v)
	}
	out := make([]string, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected element type %T, want string", item)
		}
		out[i] = s
	}
	return out, nil
}

func asMap(v interface{}) (map[string]interface{}, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected reply type %T, want map", v)
	}
	return m, nil
}

// --------------------------------------------------------------------------
// Command surface
// --------------------------------------------------------------------------

// Ping checks the server round trip; a healthy server answers "PONG"
func (c *Client) Ping() Result[string] {
	return run(c, protocol.NewPingCommand(), asString)
}

// Get fetches the value stored under key
func (c *Client) Get(key string) Result[interface{}] {
	return run(c, protocol.NewGetCommand(key), asAny)
}

// GetString fetches a value expected to be a string
func (c *Client) GetString(key string) Result[string] {
	return run(c, protocol.NewGetCommand(key), asString)
}

// GetInt fetches a value expected to be an integer
func (c *Client) GetInt(key string) Result[int64] {
	return run(c, protocol.NewGetCommand(key), asInt)
}

// GetFloat fetches a value expected to be a float
func (c *Client) GetFloat(key string) Result[float64] {
	return run(c, protocol.NewGetCommand(key), asFloat)
}

// GetBool fetches a value expected to be a boolean
func (c *Client) GetBool(key string) Result[bool] {
	return run(c, protocol.NewGetCommand(key), asBool)
}

// MGet fetches several keys in one round trip. The server answers with a
// key-to-value map; missing keys map to null values.
func (c *Client) MGet(keys ...string) Result[map[string]interface{}] {
	return run(c, protocol.NewMGetCommand(keys...), asMap)
}

// Set stores value under key, overwriting any previous value
func (c *Client) Set(key string, value interface{}) Result[string] {
	return run(c, protocol.NewSetCommand(key, value), asString)
}

// MSet stores several records in one round trip
func (c *Client) MSet(entries map[string]interface{}) Result[string] {
	return run(c, protocol.NewMSetCommand(entries), asString)
}

// Delete removes the record stored under key. Deleting a missing key fails
// with the server's not-found error.
func (c *Client) Delete(key string) Result[string] {
	return run(c, protocol.NewDeleteCommand(key), asString)
}

// Keys lists every key the server currently holds
func (c *Client) Keys() Result[[]string] {
	return run(c, protocol.NewKeysCommand(), asStringSlice)
}

// DBSize returns the number of stored records
func (c *Client) DBSize() Result[int64] {
	return run(c, protocol.NewDBSizeCommand(), asInt)
}

// Save asks the server to persist its dataset to disk
func (c *Client) Save() Result[string] {
	return run(c, protocol.NewSaveCommand(), asString)
}

// LastSave returns the unix timestamp of the last successful save
func (c *Client) LastSave() Result[int64] {
	return run(c, protocol.NewLastSaveCommand(), asInt)
}

// Flush removes every record from the server
func (c *Client) Flush() Result[string] {
	return run(c, protocol.NewFlushCommand(), asString)
}

// Exists reports whether key holds a value. Implemented over GET; the
// server's not-found error maps to a successful false.
func (c *Client) Exists(key string) Result[bool] {
	res := c.Get(key)
	if res.Ok() {
		return OkResult(true)
	}

	var serverErr *protocol.ServerError
	if errors.As(res.Err(), &serverErr) && serverErr.Message == common.NotFound(key) {
		return OkResult(false)
	}
	return FailResult[bool](res.Err())
}
