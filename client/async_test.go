package client

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func awaitResult[T any](t *testing.T, ch <-chan Result[T]) Result[T] {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for async result")
		return Result[T]{}
	}
}

func TestAsyncClientSetGet(t *testing.T) {
	s := startServer(t)

	c := NewAsyncClient(s.config(t))
	defer c.Close()

	set := awaitResult(t, c.Set("dogs", []interface{}{"Pimpek", "Laika"}))
	require.True(t, set.Ok(), "set failed: %v", set.Err())

	got := awaitResult(t, c.Get("dogs"))
	require.True(t, got.Ok(), "get failed: %v", got.Err())
	assert.Equal(t, []interface{}{"Pimpek", "Laika"}, got.Value())
}

func TestAsyncClientPipelining(t *testing.T) {
	s := startServer(t)

	cfg := s.config(t)
	cfg.PoolSize = 1 // everything rides one pipelined connection

	c := NewAsyncClient(cfg)
	defer c.Close()

	const n = 25

	sets := make([]<-chan Result[string], n)
	for i := 0; i < n; i++ {
		sets[i] = c.Set(fmt.Sprintf("key-%d", i), int64(i))
	}
	for i, ch := range sets {
		res := awaitResult(t, ch)
		require.True(t, res.Ok(), "set %d failed: %v", i, res.Err())
	}

	gets := make([]<-chan Result[interface{}], n)
	for i := 0; i < n; i++ {
		gets[i] = c.Get(fmt.Sprintf("key-%d", i))
	}
	for i, ch := range gets {
		res := awaitResult(t, ch)
		require.True(t, res.Ok(), "get %d failed: %v", i, res.Err())
		assert.Equal(t, int64(i), res.Value())
	}
}

func TestAsyncClientServerError(t *testing.T) {
	s := startServer(t)

	c := NewAsyncClient(s.config(t))
	defer c.Close()

	res := awaitResult(t, c.Delete("ghost"))
	require.True(t, res.Failure())
	assert.EqualError(t, res.Err(), "ERR 'ghost' not found")

	// the pipelined connection survives server errors
	ping := awaitResult(t, c.Ping())
	assert.True(t, ping.Ok())
}

func TestAsyncClientFailsInFlightOnDrop(t *testing.T) {
	s := startServer(t)

	cfg := s.config(t)
	cfg.PoolSize = 1

	c := NewAsyncClient(cfg)
	defer c.Close()

	// warm the connection up
	require.True(t, awaitResult(t, c.Ping()).Ok())

	s.dropNext.Store(1)
	res := awaitResult(t, c.Ping())
	require.True(t, res.Failure())

	// the pool validates on borrow and dials a fresh connection
	res = awaitResult(t, c.Ping())
	assert.True(t, res.Ok(), "ping after drop failed: %v", res.Err())
}

func TestAsyncClientUnreachable(t *testing.T) {
	s := startServer(t)
	cfg := s.config(t)
	require.NoError(t, s.ln.Close())

	c := NewAsyncClient(cfg)
	defer c.Close()

	res := awaitResult(t, c.Ping())
	require.True(t, res.Failure())
}
