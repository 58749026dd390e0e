package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"podlet/internal/agent"
	"podlet/internal/config"
	"podlet/pkg/logging"
)

// serveConfigPath points at the agent configuration file.
var serveConfigPath string

// serveDebug forces debug logging regardless of the configured level.
var serveDebug bool

// serveManifestDir overrides the configured manifest directory when set.
var serveManifestDir string

// serveRuntimeEndpoint overrides the configured CRI endpoint when set.
var serveRuntimeEndpoint string

// serveCmd defines the serve command, the agent's main entry point.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the node agent",
	Long: `Starts the podlet agent: watches the manifest directory, observes the
container runtime, and reconciles the node until terminated.

The agent is designed to run under a process supervisor such as systemd.
It reports readiness through sd_notify and exits non-zero when it cannot
start: unreadable configuration, invalid manifest directory, or an
unreachable runtime. Once running it never exits on its own; transient
runtime failures are retried indefinitely.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Early logging so bootstrap failures are visible; the agent re-reads
	// level and format from its configuration.
	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stdout)

	a, err := agent.New(agent.Options{
		ConfigPath:      serveConfigPath,
		Debug:           serveDebug,
		ManifestDir:     serveManifestDir,
		RuntimeEndpoint: serveRuntimeEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize agent: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return a.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveConfigPath, "config", config.DefaultConfigPath, "Path to the agent configuration file")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&serveManifestDir, "manifest-dir", "", "Override the configured manifest directory")
	serveCmd.Flags().StringVar(&serveRuntimeEndpoint, "runtime-endpoint", "", "Override the configured CRI endpoint")
}
