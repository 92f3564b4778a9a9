package kv

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/zcached/zcached-go/client"
)

var (
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Checks the server round trip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(cache.Ping())
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key (value is parsed as bool, int, float or string)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(cache.Set(args[0], parseValue(args[1])))
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := cache.Get(args[0])
			if res.Failure() {
				return res.Err()
			}
			fmt.Printf("key=%s, value=%v\n", args[0], res.Value())
			return nil
		},
	}
	mgetCmd = &cobra.Command{
		Use:   "mget [key]...",
		Short: "Reads several keys in one round trip",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := cache.MGet(args...)
			if res.Failure() {
				return res.Err()
			}
			for _, key := range args {
				fmt.Printf("key=%s, value=%v\n", key, res.Value()[key])
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(cache.Delete(args[0]))
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := cache.Exists(args[0])
			if res.Failure() {
				return res.Err()
			}
			fmt.Printf("key=%s, exists=%t\n", args[0], res.Value())
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Lists every key the server holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := cache.Keys()
			if res.Failure() {
				return res.Err()
			}
			for _, key := range res.Value() {
				fmt.Println(key)
			}
			return nil
		},
	}
	dbsizeCmd = &cobra.Command{
		Use:   "dbsize",
		Short: "Prints the number of stored records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := cache.DBSize()
			if res.Failure() {
				return res.Err()
			}
			fmt.Printf("dbsize=%d\n", res.Value())
			return nil
		},
	}
	saveCmd = &cobra.Command{
		Use:   "save",
		Short: "Asks the server to persist its dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(cache.Save())
		},
	}
	lastSaveCmd = &cobra.Command{
		Use:   "lastsave",
		Short: "Prints the time of the last successful save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := cache.LastSave()
			if res.Failure() {
				return res.Err()
			}
			fmt.Printf("lastsave=%s\n", time.Unix(res.Value(), 0).Format(time.RFC3339))
			return nil
		},
	}
	flushCmd = &cobra.Command{
		Use:   "flush",
		Short: "Removes every record from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(cache.Flush())
		},
	}
)

// report prints the server acknowledgement or surfaces the failure
func report(res client.Result[string]) error {
	if res.Failure() {
		return res.Err()
	}
	fmt.Println(res.Value())
	return nil
}

// parseValue interprets a command line argument as the most specific
// protocol type it can represent
func parseValue(raw string) interface{} {
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return b
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
