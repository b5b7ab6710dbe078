// Package commands implements the blockpress command line.
package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/blockpress/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "blockpress",
	Short: "blockpress - server-side block rendering",
	Long: `blockpress parses, renders and serves block-based post content.

It understands the block comment grammar, renders dynamic and static blocks
with their supports styles, processes interactivity directives and serves
posts over a REST API backed by SQLite and an object cache.

Use "blockpress [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/blockpress/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(blocksCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// loadConfig loads the configuration named by --config, or the default
// location.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if errors.Is(err, config.ErrNotFound) {
		return nil, fmt.Errorf("%w (run 'blockpress config init' to create one)", err)
	}
	return cfg, err
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "blockpress %s (commit %s, built %s)\n", Version, Commit, Date)
	},
}
