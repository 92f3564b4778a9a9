// Package client is the public API of the zcached client library: a typed
// command surface over the connection pool, with every outcome delivered as
// a uniform Result envelope.
//
// The package focuses on:
//   - A blocking Client whose commands map one to one onto server commands
//     (PING, GET, SET, MGET, MSET, DELETE, KEYS, DBSIZE, SAVE, LASTSAVE,
//     FLUSH) and never panic at runtime
//   - An AsyncClient with the same surface where every command returns a
//     channel delivering exactly one Result, served by pipelined connections
//   - Transparent recovery: lost connections are re-dialed once per command;
//     commands the server might already have applied are never resent
//
// Key Components:
//
//   - Result[T]: success-or-failure envelope, exactly one side populated.
//
//   - Client: blocking facade, safe for concurrent use, pool-backed.
//
//   - AsyncClient: future-style facade over pipelined connections managed by
//     a commons object pool.
//
// Usage:
//
//	c := client.New(common.DefaultConfig("localhost", 7556))
//	defer c.Close()
//
//	if res := c.Set("greeting", "hello"); res.Failure() {
//		log.Fatal(res.Err())
//	}
//	fmt.Println(c.GetString("greeting").Value())
package client
