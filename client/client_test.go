package client

import (
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zcached/zcached-go/common"
)

func TestClientSetGet(t *testing.T) {
	s := startServer(t)

	cfg := s.config(t)
	cfg.PoolSize = 1

	c := New(cfg)
	defer c.Close()

	set := c.Set("dogs", []interface{}{"Pimpek", "Laika"})
	require.True(t, set.Ok(), "set failed: %v", set.Err())
	assert.Equal(t, "OK", set.Value())

	got := c.Get("dogs")
	require.True(t, got.Ok(), "get failed: %v", got.Err())
	assert.Equal(t, []interface{}{"Pimpek", "Laika"}, got.Value())
}

func TestClientUnreachableServer(t *testing.T) {
	// grab a port that is guaranteed closed
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	host, portStr, _ := net.SplitHostPort(addr)
	var port int
	_, err = fmt.Sscanf(portStr, "%d", &port)
	require.NoError(t, err)

	cfg := common.DefaultConfig(host, port)
	cfg.ConnectionAttempts = 1
	cfg.TimeoutSecond = 1

	c := New(cfg)
	defer c.Close()

	require.Error(t, c.Run())

	res := c.Ping()
	require.True(t, res.Failure())
	require.ErrorIs(t, res.Err(), common.ErrNoAvailableConnections)
	assert.False(t, c.IsAlive())
}

func TestClientRecoversAfterFailedRun(t *testing.T) {
	// reserve a port, keep it closed for now
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	host, portStr, _ := net.SplitHostPort(addr)
	var port int
	_, err = fmt.Sscanf(portStr, "%d", &port)
	require.NoError(t, err)

	cfg := common.DefaultConfig(host, port)
	cfg.ConnectionAttempts = 1
	cfg.TimeoutSecond = 1
	cfg.PoolSize = 2

	c := New(cfg)
	defer c.Close()

	require.Error(t, c.Run())
	require.True(t, c.Ping().Failure())

	// the server comes up on the very port the client was created for; a
	// failed startup must not condemn the client forever
	startServerAt(t, addr)

	res := c.Ping()
	require.True(t, res.Ok(), "ping after server came back: %v", res.Err())
	assert.Equal(t, "PONG", res.Value())
	assert.True(t, c.IsAlive())
}

func TestClientRecoversFromDropBeforePingReply(t *testing.T) {
	s := startServer(t)

	c := New(s.config(t))
	defer c.Close()
	require.NoError(t, c.Run())
	require.True(t, c.Ping().Ok())

	// the server swallows the next request and drops the connection;
	// PING is idempotent, so the client reconnects and resends
	s.dropNext.Store(1)
	res := c.Ping()
	require.True(t, res.Ok(), "ping after drop failed: %v", res.Err())
	assert.Equal(t, "PONG", res.Value())
}

func TestClientDropDuringMutationIsNotResent(t *testing.T) {
	s := startServer(t)

	c := New(s.config(t))
	defer c.Close()
	require.NoError(t, c.Run())

	s.dropNext.Store(1)
	res := c.Set("key", "value")
	require.True(t, res.Failure())
	require.ErrorIs(t, res.Err(), common.ErrConnectionReestablished)

	// the reconnect already happened, the next command just works
	require.True(t, c.Ping().Ok())
}

func TestClientDeleteMissingKey(t *testing.T) {
	s := startServer(t)

	c := New(s.config(t))
	defer c.Close()

	res := c.Delete("ghost")
	require.True(t, res.Failure())
	assert.EqualError(t, res.Err(), "ERR 'ghost' not found")

	// a server error is not a connection failure
	assert.True(t, c.Ping().Ok())
	assert.Equal(t, 1, c.Pool().ConnectedCount())
}

func TestClientMGetMSet(t *testing.T) {
	s := startServer(t)

	c := New(s.config(t))
	defer c.Close()

	set := c.MSet(map[string]interface{}{
		"a": int64(1),
		"b": "two",
		"c": true,
	})
	require.True(t, set.Ok(), "mset failed: %v", set.Err())

	got := c.MGet("a", "b", "c", "missing")
	require.True(t, got.Ok(), "mget failed: %v", got.Err())
	assert.Equal(t, map[string]interface{}{
		"a":       int64(1),
		"b":       "two",
		"c":       true,
		"missing": nil,
	}, got.Value())
}

func TestClientKeysDBSizeFlush(t *testing.T) {
	s := startServer(t)

	c := New(s.config(t))
	defer c.Close()

	require.True(t, c.Set("one", int64(1)).Ok())
	require.True(t, c.Set("two", int64(2)).Ok())

	keys := c.Keys()
	require.True(t, keys.Ok())
	assert.ElementsMatch(t, []string{"one", "two"}, keys.Value())

	size := c.DBSize()
	require.True(t, size.Ok())
	assert.Equal(t, int64(2), size.Value())

	require.True(t, c.Flush().Ok())
	size = c.DBSize()
	require.True(t, size.Ok())
	assert.Equal(t, int64(0), size.Value())
}

func TestClientTypedGetters(t *testing.T) {
	s := startServer(t)

	c := New(s.config(t))
	defer c.Close()

	require.True(t, c.Set("str", "hello").Ok())
	require.True(t, c.Set("int", int64(42)).Ok())
	require.True(t, c.Set("float", 3.5).Ok())
	require.True(t, c.Set("bool", true).Ok())

	assert.Equal(t, "hello", c.GetString("str").Value())
	assert.Equal(t, int64(42), c.GetInt("int").Value())
	assert.Equal(t, 3.5, c.GetFloat("float").Value())
	assert.Equal(t, true, c.GetBool("bool").Value())

	// type mismatch is a failed Result, not a panic
	res := c.GetInt("str")
	require.True(t, res.Failure())
}

func TestClientExists(t *testing.T) {
	s := startServer(t)

	c := New(s.config(t))
	defer c.Close()

	require.True(t, c.Set("present", int64(1)).Ok())

	exists := c.Exists("present")
	require.True(t, exists.Ok())
	assert.True(t, exists.Value())

	exists = c.Exists("absent")
	require.True(t, exists.Ok())
	assert.False(t, exists.Value())
}

func TestClientNullValueIsEmpty(t *testing.T) {
	s := startServer(t)

	c := New(s.config(t))
	defer c.Close()

	require.True(t, c.Set("nothing", nil).Ok())

	res := c.Get("nothing")
	require.True(t, res.Ok())
	assert.True(t, res.IsEmpty())
	assert.Nil(t, res.Value())
}

func TestClientConcurrentUse(t *testing.T) {
	s := startServer(t)

	cfg := s.config(t)
	cfg.PoolSize = 5

	c := New(cfg)
	defer c.Close()
	require.NoError(t, c.Run())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			set := c.Set(key, int64(i))
			assert.True(t, set.Ok(), "set %s: %v", key, set.Err())
			got := c.GetInt(key)
			assert.True(t, got.Ok(), "get %s: %v", key, got.Err())
			assert.Equal(t, int64(i), got.Value())
		}(i)
	}
	wg.Wait()

	size := c.DBSize()
	require.True(t, size.Ok())
	assert.Equal(t, int64(20), size.Value())
}

func TestNewPanicsOnInvalidConfig(t *testing.T) {
	assert.Panics(t, func() {
		New(common.ClientConfig{Host: "", PoolSize: 1})
	})
}
