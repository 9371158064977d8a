// Package cmd implements the vowgate CLI.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vowgate/vowgate/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vowgate",
	Short: "Wedding invitation backend",
	Long: `vowgate is the backend for a wedding invitation site: it throttles
and validates guest traffic, relays RSVP, guestbook, and visit events to
Telegram and Discord, and proxies guest questions to a Gemini assistant.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/vowgate/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
}

// initLogging sets up the CLI logger before any command runs. Config
// loading happens per command so serve and doctor can report config
// problems through their own error paths.
func initLogging() {
	observability.InitCLILogger("vowgate", verbose)
}
