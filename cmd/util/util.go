package util

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zcached/zcached-go/common"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the common connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "host"
	cmd.PersistentFlags().String(key, "localhost", WrapString("The address of the zcached server (or the socket path for the unix network)"))

	key = "port"
	cmd.PersistentFlags().Int(key, 7556, WrapString("The port of the zcached server (ignored for the unix network)"))

	key = "network"
	cmd.PersistentFlags().String(key, "tcp", WrapString("The transport medium to use (tcp, unix)"))

	key = "pool-size"
	cmd.PersistentFlags().Int(key, 1, WrapString("Number of simultaneous connections to the server"))

	key = "connection-attempts"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry establishing a connection"))

	key = "reconnect"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to transparently reconnect broken connections"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds for every request"))

	key = "buffer-size"
	cmd.PersistentFlags().Int(key, 2048, WrapString("The chunk size for socket reads (in bytes)"))

	key = "socket-write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The OS-level write buffer size for the socket (in KB, 0 = OS default)"))

	key = "socket-read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The OS-level read buffer size for the socket (in KB, 0 = OS default)"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (ignored for the unix network)"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, ignored for the unix network)"))

	key = "tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The linger time (in seconds, ignored for the unix network)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("zcached")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		Host:               viper.GetString("host"),
		Port:               viper.GetInt("port"),
		Network:            viper.GetString("network"),
		PoolSize:           viper.GetInt("pool-size"),
		ConnectionAttempts: viper.GetInt("connection-attempts"),
		Reconnect:          viper.GetBool("reconnect"),
		TimeoutSecond:      viper.GetInt("timeout"),
		BufferSize:         viper.GetInt("buffer-size"),
		Socket: common.SocketConf{
			WriteBufferSize: viper.GetInt("socket-write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("socket-read-buffer") * 1024,
		},
		TCP: common.TCPConf{
			TCPNoDelay:      viper.GetBool("tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("tcp-linger"),
		},
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
