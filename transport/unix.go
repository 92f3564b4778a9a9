package transport

import (
	"net"
	"time"

	"github.com/zcached/zcached-go/common"
)

// unixConnector implements the IClientConnector interface for Unix sockets
type unixConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see IClientConnector)
// --------------------------------------------------------------------------

func (c *unixConnector) GetName() string {
	return "unix"
}

func (c *unixConnector) Connect(endpoint string, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{Timeout: timeout}
	return dialer.Dial("unix", endpoint)
}

func (c *unixConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil
	}

	if config.Socket.ReadBufferSize > 0 {
		if err := unixConn.SetReadBuffer(config.Socket.ReadBufferSize); err != nil {
			return err
		}
	}
	if config.Socket.WriteBufferSize > 0 {
		if err := unixConn.SetWriteBuffer(config.Socket.WriteBufferSize); err != nil {
			return err
		}
	}
	return nil
}
