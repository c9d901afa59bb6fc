// Package command provides the cobra commands of the collectflow binary.
// Running it without a sub-command starts the gateway, like "serve".
//
//	./collectflow [-c configs/collectflow.yaml]         # start the gateway
//	./collectflow check [-c configs/collectflow.yaml]   # one readiness check
//	./collectflow version
package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags.
var Version = "1.0.0"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "collectflow",
	Short: "CRUD gateway for collection practices over SQL Server",
	Long: `CollectFlow exposes practices, movements, e-mails and text messages
of a collection agency database over an authenticated, rate-limited HTTP API.
Every request runs inside a unit of work that leases one connection from a
bounded pool and commits or rolls back before releasing it.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the most specific command for the CLI arguments.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(fixConfigPath)
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file path")
}

// fixConfigPath falls back to CONFIG_FILE. With neither set the gateway is
// configured from the environment alone.
func fixConfigPath() {
	if cfgPath != "" {
		return
	}
	cfgPath = os.Getenv("CONFIG_FILE")
}
