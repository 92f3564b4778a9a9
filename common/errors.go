package common

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Client-side error signals
// --------------------------------------------------------------------------

// The transport error signals every client operation can surface through a
// failed Result. Callers compare with errors.Is.
var (
	// ErrConnectionClosed signals that the connection was terminated and
	// could not be restored.
	ErrConnectionClosed = errors.New("the connection has been terminated")

	// ErrConnectionReestablished signals a transient failure: the connection
	// was terminated mid-request but a reconnect attempt already succeeded.
	// The command may or may not have been applied by the server.
	ErrConnectionReestablished = errors.New("the connection was terminated, but managed to reestablish it")

	// ErrNoAvailableConnections signals pool exhaustion. Callers may invoke
	// the pool's Reconnect and retry.
	ErrNoAvailableConnections = errors.New("no available connections")

	// ErrTimeoutLimit signals that the server did not answer within the
	// configured timeout.
	ErrTimeoutLimit = errors.New("timeout limit exceeded while waiting for a response")
)

// --------------------------------------------------------------------------
// Server-side error messages
// --------------------------------------------------------------------------

// Error texts the server is known to report. Kept verbatim so callers can
// match on the Result error string.
const (
	ServerErrBadRequest        = "ERR bad request"
	ServerErrUnexpected        = "ERR unexpected"
	ServerErrMaxClientsReached = "ERR max number of clients reached"
	ServerErrBulkTooLarge      = "ERR bulk too large"
	ServerErrNotWhitelisted    = "ERR not whitelisted"
	ServerErrKeyNotString      = "TYPERR key not string"
	ServerErrNotBoolean        = "TYPERR not boolean"
	ServerErrNotInteger        = "TYPERR not integer"
)

// NotFound renders the server's error message for a missing key
func NotFound(key string) string {
	return fmt.Sprintf("ERR '%s' not found", key)
}

// UnknownCommand renders the server's error message for an unknown command
func UnknownCommand(name string) string {
	return fmt.Sprintf("ERR unknown command '%s'", name)
}
