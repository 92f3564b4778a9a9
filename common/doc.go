// Package common holds the configuration, logging and error definitions shared
// by every layer of the zcached client.
//
// The package focuses on:
//   - A single ClientConfig struct carrying all construction-time settings
//     (endpoint, pool size, timeouts, socket tuning)
//   - A small named-logger facade so each package logs under its own tag
//   - The client-side error signals surfaced through Results, plus helpers
//     matching the server's own error message formats
//
// Key Components:
//
//   - ClientConfig: all configuration for a client; the client owns no
//     persisted state beyond it.
//
//   - GetLogger: returns a leveled logger for a named subsystem.
//
//   - ErrConnectionClosed, ErrConnectionReestablished,
//     ErrNoAvailableConnections, ErrTimeoutLimit: the transport error signals.
package common
