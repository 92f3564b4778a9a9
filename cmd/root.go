package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zcached/zcached-go/cmd/kv"
	"github.com/zcached/zcached-go/common"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "zcached-cli",
		Short: "command line client for zcached",
		Long: fmt.Sprintf(`zcached-cli (v%s)

A command line client for the zcached in-memory cache: typed key-value
operations, server maintenance and performance testing over TCP or Unix
sockets.`, Version),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			common.SetLogLevel(level)
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of zcached-cli",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("zcached-cli v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	RootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
