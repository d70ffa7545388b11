package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the foldersync application
var rootCmd = &cobra.Command{
	Use:   "foldersync",
	Short: "Exposes a folder as live MCP resources",
	Long: `foldersync is an MCP (Model Context Protocol) server that exposes the
files of a local folder as resources and keeps connected clients in sync.

New, modified, and removed files are detected by polling the folder;
clients receive list-changed broadcasts and, for resources they
subscribed to, per-file update notifications.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "foldersync version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
