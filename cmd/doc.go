// Package cmd implements the command-line interface for the zcached client.
// It provides a hierarchical command structure for interacting with a running
// zcached server.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for cache operations (get, set, del, keys, flush, etc.)
//     and performance testing
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See zcached-cli -help for a list of all commands.
package cmd
