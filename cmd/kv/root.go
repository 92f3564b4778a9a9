package kv

import (
	"github.com/spf13/cobra"

	"github.com/zcached/zcached-go/client"
	"github.com/zcached/zcached-go/cmd/util"
	"github.com/zcached/zcached-go/common"
)

var (
	cache *client.Client

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform cache operations against a zcached server",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common connection flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(pingCmd)
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(mgetCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(existsCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(dbsizeCmd)
	KeyValueCommands.AddCommand(saveCmd)
	KeyValueCommands.AddCommand(lastSaveCmd)
	KeyValueCommands.AddCommand(flushCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupClient creates the cache client from the bound configuration
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	if level, err := cmd.Flags().GetString("log-level"); err == nil {
		common.SetLogLevel(level)
	}

	config := util.GetClientConfig()
	if err := config.Validate(); err != nil {
		return err
	}

	cache = client.New(config)
	return cache.Run()
}
