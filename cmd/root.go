package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
)

// rootCmd represents the base command for the podlet agent.
// It is the entry point when the binary is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "podlet",
	Short: "Per-node pod agent driven by manifest files",
	Long: `podlet keeps the containers on one node converged to the pod manifests
in a local directory. It watches the directory, observes the container
runtime, and continuously plans and executes the next step toward the
declared state.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is called from the main package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI. It runs the root command,
// which dispatches subcommands and flags. Called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "podlet version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
