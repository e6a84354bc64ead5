// esagent is a CLI agent that answers questions about Elasticsearch data
// using tools exposed by an MCP server.
package main

import (
	"fmt"
	"os"

	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "esagent",
	Short: "esagent - Elasticsearch MCP chat agent",
	Long:  "esagent answers questions about Elasticsearch data using tools exposed by an MCP server.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if debug {
			xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
			xlog.SetGlobalLogLevel(xlog.DEBUG)
		} else {
			xlog.SetGlobalLogLevel(xlog.ERROR)
		}
	},
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&cfgFile, "cfg", "esagent.yaml", "Configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(toolsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
