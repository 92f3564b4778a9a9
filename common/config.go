package common

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Socket configuration structs
// --------------------------------------------------------------------------

// SocketConf holds buffer settings applied to every socket the client opens
type SocketConf struct {
	// WriteBufferSize is the OS-level write buffer size in bytes (0 = OS default)
	WriteBufferSize int
	// ReadBufferSize is the OS-level read buffer size in bytes (0 = OS default)
	ReadBufferSize int
}

// TCPConf holds TCP-specific settings (ignored for unix sockets)
type TCPConf struct {
	// TCPNoDelay disables Nagle's algorithm when true
	TCPNoDelay bool
	// TCPKeepAliveSec is the keepalive interval in seconds (0 = disabled)
	TCPKeepAliveSec int
	// TCPLingerSec is the linger time in seconds (0 = OS default)
	TCPLingerSec int
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters for a zcached client.
// The client keeps no state of its own beyond what is configured here.
type ClientConfig struct {
	// Host is the server address (or the socket path for the unix network)
	Host string
	// Port is the server port (ignored for the unix network)
	Port int
	// Network selects the transport medium: "tcp" (default) or "unix"
	Network string

	// PoolSize is the fixed capacity of the connection pool
	PoolSize int
	// ConnectionAttempts bounds how often a single Connect() retries
	ConnectionAttempts int
	// Reconnect enables transparent reconnection of broken connections
	Reconnect bool
	// TimeoutSecond is the per-request timeout (connect, send and receive)
	TimeoutSecond int
	// BufferSize is the chunk size for socket reads, in bytes
	BufferSize int

	Socket SocketConf
	TCP    TCPConf
}

// DefaultConfig returns a ClientConfig with the library defaults for the
// given endpoint. The defaults mirror the reference client: three connection
// attempts, reconnection enabled, 10 second timeout, 2 KB read chunks.
func DefaultConfig(host string, port int) ClientConfig {
	return ClientConfig{
		Host:               host,
		Port:               port,
		Network:            "tcp",
		PoolSize:           1,
		ConnectionAttempts: 3,
		Reconnect:          true,
		TimeoutSecond:      10,
		BufferSize:         2048,
		TCP:                TCPConf{TCPNoDelay: true},
	}
}

// Endpoint returns the dialable address for the configured network
func (c *ClientConfig) Endpoint() string {
	if c.Network == "unix" {
		return c.Host
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks the configuration for values that can never work.
// It is called by every constructor taking a ClientConfig.
func (c *ClientConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("config: host must not be empty")
	}
	if c.Network != "" && c.Network != "tcp" && c.Network != "unix" {
		return fmt.Errorf("config: unknown network %q (must be tcp or unix)", c.Network)
	}
	if c.Network != "unix" && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("config: pool size must be at least 1, got %d", c.PoolSize)
	}
	if c.TimeoutSecond < 0 {
		return fmt.Errorf("config: negative timeout")
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint())
	addField("Network", c.Network)
	addField("Pool Size", strconv.Itoa(c.PoolSize))
	addField("Connection Attempts", strconv.Itoa(c.ConnectionAttempts))
	addField("Reconnect", strconv.FormatBool(c.Reconnect))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Read Chunk Size", fmt.Sprintf("%d bytes", c.BufferSize))

	addSection("Socket")
	addField("Write Buffer", strconv.Itoa(c.Socket.WriteBufferSize))
	addField("Read Buffer", strconv.Itoa(c.Socket.ReadBufferSize))

	if c.Network != "unix" {
		addSection("TCP")
		addField("No Delay", strconv.FormatBool(c.TCP.TCPNoDelay))
		addField("Keepalive (sec)", strconv.Itoa(c.TCP.TCPKeepAliveSec))
		addField("Linger (sec)", strconv.Itoa(c.TCP.TCPLingerSec))
	}

	return sb.String()
}
