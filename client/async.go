package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edwingeng/deque/v2"
	cpool "github.com/jolestar/go-commons-pool/v2"

	"github.com/zcached/zcached-go/common"
	"github.com/zcached/zcached-go/protocol"
	"github.com/zcached/zcached-go/transport"
)

var asyncLogger = common.GetLogger("async")

// --------------------------------------------------------------------------
// Pipelined connection
// --------------------------------------------------------------------------

// pendingReply is one in-flight request waiting for its reply
type pendingReply struct {
	cmd protocol.Command
	ch  chan Result[interface{}]
}

// asyncConn is a pipelined connection: requests are written back to back and
// matched to replies by send order. The server answers strictly in order, so
// a FIFO of in-flight requests is the whole routing table.
type asyncConn struct {
	config common.ClientConfig
	conn   net.Conn

	writeMu sync.Mutex

	inflightMu sync.Mutex
	inflight   *deque.Deque[*pendingReply]

	closed   atomic.Bool
	lastUsed atomic.Int64
	done     chan struct{}
}

func dialAsyncConn(config common.ClientConfig) (*asyncConn, error) {
	connector, err := transport.NewConnector(config.Network)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(config.TimeoutSecond) * time.Second
	conn, err := connector.Connect(config.Endpoint(), timeout)
	if err != nil {
		return nil, err
	}
	if err := connector.UpgradeConnection(conn, config); err != nil {
		_ = conn.Close()
		return nil, err
	}

	a := &asyncConn{
		config:   config,
		conn:     conn,
		inflight: deque.NewDeque[*pendingReply](),
		done:     make(chan struct{}),
	}
	a.touch()

	go a.readLoop()
	go a.heartbeat()
	return a, nil
}

func (a *asyncConn) touch() {
	a.lastUsed.Store(time.Now().UnixNano())
}

func (a *asyncConn) isClosed() bool {
	return a.closed.Load()
}

// submit writes the request and registers its future. The reply channel is
// buffered so the read loop never blocks on a slow consumer.
func (a *asyncConn) submit(cmd protocol.Command) <-chan Result[interface{}] {
	ch := make(chan Result[interface{}], 1)

	frame, err := cmd.Encode()
	if err != nil {
		ch <- FailResult[interface{}](err)
		return ch
	}
	if a.isClosed() {
		ch <- FailResult[interface{}](common.ErrConnectionClosed)
		return ch
	}

	a.touch()
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	// register before writing so the read loop can match a racing reply
	a.inflightMu.Lock()
	a.inflight.PushBack(&pendingReply{cmd: cmd, ch: ch})
	a.inflightMu.Unlock()

	if _, err := a.conn.Write(frame); err != nil {
		a.fail(fmt.Errorf("%w: %v", common.ErrConnectionClosed, err))
	}
	return ch
}

func (a *asyncConn) popInflight() *pendingReply {
	a.inflightMu.Lock()
	defer a.inflightMu.Unlock()
	if a.inflight.IsEmpty() {
		return nil
	}
	return a.inflight.PopFront()
}

// readLoop decodes reply frames off the socket and completes futures in
// send order
func (a *asyncConn) readLoop() {
	var residual []byte

	chunkSize := a.config.BufferSize
	if chunkSize <= 0 {
		chunkSize = 2048
	}
	chunk := make([]byte, chunkSize)

	for {
		for len(residual) > 0 {
			value, consumed, err := protocol.DecodeFrame(residual)
			if errors.Is(err, protocol.ErrIncomplete) {
				break
			}
			residual = residual[consumed:]

			pending := a.popInflight()
			if pending == nil {
				asyncLogger.Warningf("unsolicited reply from %s, dropping", a.config.Endpoint())
				continue
			}

			var serverErr *protocol.ServerError
			switch {
			case errors.As(err, &serverErr):
				pending.ch <- FailResult[interface{}](serverErr)
			case err != nil:
				pending.ch <- FailResult[interface{}](err)
				a.fail(fmt.Errorf("%w: %v", common.ErrConnectionClosed, err))
				return
			default:
				pending.ch <- OkResult(value)
			}
		}

		n, err := a.conn.Read(chunk)
		if n > 0 {
			residual = append(residual, chunk[:n]...)
		}
		if err != nil {
			a.fail(common.ErrConnectionClosed)
			return
		}
	}
}

// heartbeat keeps idle pipelined connections warm with periodic PINGs
func (a *asyncConn) heartbeat() {
	interval := 30 * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			idle := time.Since(time.Unix(0, a.lastUsed.Load()))
			if idle < interval {
				continue
			}
			// reply is routed through the deque like any other command
			a.submit(protocol.NewPingCommand())
		}
	}
}

// fail closes the connection and completes every in-flight future with the
// given error. Safe to call from multiple goroutines; only the first wins.
func (a *asyncConn) fail(err error) {
	if !a.closed.CompareAndSwap(false, true) {
		return
	}
	close(a.done)
	_ = a.conn.Close()

	a.inflightMu.Lock()
	defer a.inflightMu.Unlock()
	for !a.inflight.IsEmpty() {
		pending := a.inflight.PopFront()
		pending.ch <- FailResult[interface{}](err)
	}
}

func (a *asyncConn) close() {
	a.fail(common.ErrConnectionClosed)
}

// --------------------------------------------------------------------------
// Object pool plumbing
// --------------------------------------------------------------------------

// asyncConnFactory implements cpool.PooledObjectFactory
type asyncConnFactory struct {
	config common.ClientConfig
}

func (f *asyncConnFactory) MakeObject(ctx context.Context) (*cpool.PooledObject, error) {
	conn, err := dialAsyncConn(f.config)
	if err != nil {
		return nil, err
	}
	return cpool.NewPooledObject(conn), nil
}

func (f *asyncConnFactory) DestroyObject(ctx context.Context, object *cpool.PooledObject) error {
	object.Object.(*asyncConn).close()
	return nil
}

func (f *asyncConnFactory) ValidateObject(ctx context.Context, object *cpool.PooledObject) bool {
	return !object.Object.(*asyncConn).isClosed()
}

func (f *asyncConnFactory) ActivateObject(ctx context.Context, object *cpool.PooledObject) error {
	return nil
}

func (f *asyncConnFactory) PassivateObject(ctx context.Context, object *cpool.PooledObject) error {
	return nil
}

// --------------------------------------------------------------------------
// AsyncClient
// --------------------------------------------------------------------------

// AsyncClient is the non-blocking facade: every command returns a channel
// that delivers exactly one Result. Connections are pipelined, so many
// commands can be in flight on one socket; a connection is borrowed only for
// the duration of the write.
type AsyncClient struct {
	config common.ClientConfig
	pool   *cpool.ObjectPool
	ctx    context.Context
	cancel context.CancelFunc
}

// NewAsyncClient creates an asynchronous client. An invalid configuration is
// a programming error and panics. Connections are dialed on demand.
func NewAsyncClient(config common.ClientConfig) *AsyncClient {
	if err := config.Validate(); err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	poolConfig := cpool.NewDefaultPoolConfig()
	poolConfig.MaxTotal = config.PoolSize
	poolConfig.TestOnBorrow = true

	return &AsyncClient{
		config: config,
		pool:   cpool.NewObjectPool(ctx, &asyncConnFactory{config: config}, poolConfig),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close tears down every pipelined connection. In-flight futures complete
// with the connection-closed failure.
func (c *AsyncClient) Close() {
	c.pool.Close(c.ctx)
	c.cancel()
}

// submit borrows a pipelined connection, writes the request and returns the
// connection to the pool immediately; the reply arrives via the future.
func (c *AsyncClient) submit(cmd protocol.Command) <-chan Result[interface{}] {
	obj, err := c.pool.BorrowObject(c.ctx)
	if err != nil {
		ch := make(chan Result[interface{}], 1)
		ch <- FailResult[interface{}](err)
		return ch
	}

	conn := obj.(*asyncConn)
	future := conn.submit(cmd)

	if conn.isClosed() {
		_ = c.pool.InvalidateObject(c.ctx, obj)
	} else if err := c.pool.ReturnObject(c.ctx, obj); err != nil {
		asyncLogger.Warningf("returning connection to pool: %v", err)
	}
	return future
}

// runAsync submits a command and converts its future to the typed Result
func runAsync[T any](c *AsyncClient, cmd protocol.Command, convert func(interface{}) (T, error)) <-chan Result[T] {
	out := make(chan Result[T], 1)
	start := time.Now()
	future := c.submit(cmd)

	go func() {
		res := <-future
		if res.Failure() {
			observe(cmd.Name, start, true)
			out <- FailResult[T](res.Err())
			return
		}
		value, err := convert(res.Value())
		if err != nil {
			observe(cmd.Name, start, true)
			out <- FailResult[T](err)
			return
		}
		observe(cmd.Name, start, false)
		out <- OkResult(value)
	}()
	return out
}

// --------------------------------------------------------------------------
// Command surface (see the blocking Client for semantics)
// --------------------------------------------------------------------------

func (c *AsyncClient) Ping() <-chan Result[string] {
	return runAsync(c, protocol.NewPingCommand(), asString)
}

func (c *AsyncClient) Get(key string) <-chan Result[interface{}] {
	return runAsync(c, protocol.NewGetCommand(key), asAny)
}

func (c *AsyncClient) MGet(keys ...string) <-chan Result[map[string]interface{}] {
	return runAsync(c, protocol.NewMGetCommand(keys...), asMap)
}

func (c *AsyncClient) Set(key string, value interface{}) <-chan Result[string] {
	return runAsync(c, protocol.NewSetCommand(key, value), asString)
}

func (c *AsyncClient) MSet(entries map[string]interface{}) <-chan Result[string] {
	return runAsync(c, protocol.NewMSetCommand(entries), asString)
}

func (c *AsyncClient) Delete(key string) <-chan Result[string] {
	return runAsync(c, protocol.NewDeleteCommand(key), asString)
}

func (c *AsyncClient) Keys() <-chan Result[[]string] {
	return runAsync(c, protocol.NewKeysCommand(), asStringSlice)
}

func (c *AsyncClient) DBSize() <-chan Result[int64] {
	return runAsync(c, protocol.NewDBSizeCommand(), asInt)
}

func (c *AsyncClient) Save() <-chan Result[string] {
	return runAsync(c, protocol.NewSaveCommand(), asString)
}

func (c *AsyncClient) LastSave() <-chan Result[int64] {
	return runAsync(c, protocol.NewLastSaveCommand(), asInt)
}

func (c *AsyncClient) Flush() <-chan Result[string] {
	return runAsync(c, protocol.NewFlushCommand(), asString)
}
