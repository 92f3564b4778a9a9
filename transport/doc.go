// Package transport owns the connection lifecycle of the zcached client: a
// single-socket Connection state machine, a fixed-capacity connection Pool
// with reconnection and failover, and the dial abstraction that lets the
// same core run over TCP or Unix sockets.
//
// The package focuses on:
//   - Deterministic connection states (Disconnected, Connected, Broken) with
//     explicit transitions on connect, I/O failure and reconnect
//   - Stream-safe receiving: reads are assembled until the wire codec
//     reports a complete frame, so partial TCP reads never corrupt a reply
//   - A pool acquire/release discipline that guarantees no two logical
//     operations ever share a socket
//
// Key Components:
//
//   - IClientConnector: dial abstraction implemented per medium (tcp, unix).
//
//   - Connection: owns exactly one socket to one endpoint for its lifetime.
//
//   - Pool: fixed-size slot table of Connections created through a
//     caller-supplied factory; serves healthy connections, revives broken
//     ones, reports exhaustion instead of blocking forever.
//
//   - ExponentialBackoff: retry pacing for connects and reconnects.
package transport
