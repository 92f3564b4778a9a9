package transport

import (
	"fmt"
	"net"
	"time"

	"github.com/zcached/zcached-go/common"
)

// IClientConnector defines the interface for medium-specific connection
// operations. The Connection state machine is identical for every medium;
// only dialing and socket tuning differ.
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint within the
	// given timeout
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport medium (e.g. "tcp", "unix")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established
	// connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// NewConnector returns the connector for the configured network
func NewConnector(network string) (IClientConnector, error) {
	switch network {
	case "", "tcp":
		return &tcpConnector{}, nil
	case "unix":
		return &unixConnector{}, nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}
