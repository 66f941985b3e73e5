// Package main provides the toonshare server and its maintenance commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/toonshare/internal/app"
	"github.com/MrSnakeDoc/toonshare/internal/config"
	"github.com/MrSnakeDoc/toonshare/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "toonshare",
	Short: "toonshare serves shareable webtoon lists",
	Long: `toonshare lets signed-in users curate a list of webtoons, publish it
under a short link, and collect likes, views and comments on it.

Running the binary without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server. Configuration is read from the environment,
optionally seeded from the file named by TOONSHARE_ENV_FILE (default .env).`,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := app.New(config.Load())
	if err != nil {
		return fmt.Errorf("toonshare failed to start: %w", err)
	}
	return a.Run()
}
