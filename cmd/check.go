package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"podlet/internal/config"
	"podlet/internal/manifest"
	"podlet/internal/runtime"
	pkgstrings "podlet/pkg/strings"
)

var (
	checkConfigPath string
	checkQuiet      bool
)

// checkRuntimeTimeout bounds the runtime probe so a dead socket fails the
// check instead of hanging it.
const checkRuntimeTimeout = 5 * time.Second

// checkCmd represents the check command.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the node's podlet setup",
	Long: `Check verifies the agent's inputs without reconciling anything:

  config     the configuration file parses and validates
  manifests  every manifest in the directory parses and validates
  runtime    the container runtime answers on the configured endpoint

The command exits non-zero if any check fails, so it can gate node
provisioning pipelines.

Examples:
  podlet check
  podlet check --config /etc/podlet/config.yaml
  podlet check -q && systemctl start podlet`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkConfigPath, "config", config.DefaultConfigPath, "Path to the agent configuration file")
	checkCmd.Flags().BoolVarP(&checkQuiet, "quiet", "q", false, "Suppress the report table and rely on the exit code")
}

// checkResult is one row of the report.
type checkResult struct {
	name    string
	ok      bool
	details string
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var results []checkResult

	cfg, err := config.LoadConfig(checkConfigPath)
	if err != nil {
		// Without a trustworthy config the other checks would probe the
		// wrong places; report and stop here.
		results = append(results, checkResult{"config", false, err.Error()})
		renderChecks(results)
		return fmt.Errorf("1 check failed")
	}
	results = append(results, checkResult{"config", true, checkConfigPath})
	results = append(results, checkManifests(cfg))
	results = append(results, checkRuntime(ctx, cfg))

	renderChecks(results)

	failed := 0
	for _, r := range results {
		if !r.ok {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func checkManifests(cfg config.Config) checkResult {
	target, err := manifest.Load(cfg.Manifests.Directory)
	if err != nil {
		return checkResult{"manifests", false, err.Error()}
	}
	return checkResult{
		name:    "manifests",
		ok:      true,
		details: fmt.Sprintf("%d pod(s) in %s", len(target), cfg.Manifests.Directory),
	}
}

func checkRuntime(ctx context.Context, cfg config.Config) checkResult {
	client, err := runtime.NewCRI(cfg.Runtime.Endpoint)
	if err != nil {
		return checkResult{"runtime", false, err.Error()}
	}
	defer client.Close()

	probeCtx, cancel := context.WithTimeout(ctx, checkRuntimeTimeout)
	defer cancel()

	version, err := client.Version(probeCtx)
	if err != nil {
		return checkResult{"runtime", false, fmt.Sprintf("no answer from %s: %v", cfg.Runtime.Endpoint, err)}
	}
	observed, err := client.ListPods(probeCtx)
	if err != nil {
		return checkResult{"runtime", false, fmt.Sprintf("failed to list pods: %v", err)}
	}
	return checkResult{
		name:    "runtime",
		ok:      true,
		details: fmt.Sprintf("%s at %s, %d pod(s) present", version, cfg.Runtime.Endpoint, len(observed)),
	}
}

// renderChecks prints the report table unless --quiet is set.
func renderChecks(results []checkResult) {
	if checkQuiet {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("CHECK"),
		text.FgHiCyan.Sprint("STATUS"),
		text.FgHiCyan.Sprint("DETAILS"),
	})

	for _, r := range results {
		status := text.FgGreen.Sprint("ok")
		if !r.ok {
			status = text.FgRed.Sprint("failed")
		}
		// Scan errors can run to many lines; keep the table scannable.
		t.AppendRow(table.Row{r.name, status, pkgstrings.Truncate(r.details, 120)})
	}

	t.Render()
}
