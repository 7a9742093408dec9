package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quantpulse/tradeaudit/internal/config"
	"github.com/quantpulse/tradeaudit/internal/health"
)

var (
	runForce  bool
	runFormat string
	runOutput string
)

// runCmd executes a single health-check pass
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one health-check pass",
	Long: `Run one health-check pass: probe upstream collaborators, check the
monitoring loop's freshness, classify recurring data gaps, and scan the
model catalog. The pass is throttled; use --force to run regardless of
when the last run happened.

Exit code is 0 whatever the health verdict; only setup failures (store
unreachable) exit non-zero.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runForce, "force", false, "Bypass the run throttle")
	runCmd.Flags().StringVar(&runFormat, "format", "table", "Output format (table|json)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "Output file (default: stdout)")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runFormat != "table" && runFormat != "json" {
		return fmt.Errorf("invalid format %q, must be table or json", runFormat)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.auditor.Run(ctx, runForce)
	if err != nil {
		return err
	}

	out := os.Stdout
	if runOutput != "" {
		f, err := os.Create(runOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if runFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return renderTable(out, result)
}

// renderTable writes the human-facing summary table
func renderTable(out *os.File, r *health.Result) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Status:\t%s\n", strings.ToUpper(string(r.Status)))
	fmt.Fprintf(w, "Date:\t%s\n", r.RunDate)
	fmt.Fprintf(w, "Summary:\t%s\n", r.Summary)
	if r.Skipped {
		return w.Flush()
	}

	fmt.Fprintln(w)
	for _, o := range r.Probes {
		mark := "OK"
		if !o.OK {
			mark = "DOWN"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", o.Probe, mark, o.Detail)
	}
	fmt.Fprintf(w, "  monitoring loop\t%s\n", r.SignalMessage)

	if len(r.RecurringGaps) > 0 {
		fmt.Fprintf(w, "\nRecurring gaps (fix permanently):\t%s\n", strings.Join(r.RecurringGaps, ", "))
	}
	if len(r.NewGaps) > 0 {
		fmt.Fprintf(w, "New gaps:\t%s\n", strings.Join(r.NewGaps, ", "))
	}
	if len(r.NewModels) > 0 {
		fmt.Fprintf(w, "New models available:\t%s\n", strings.Join(r.NewModels, ", "))
	}
	return w.Flush()
}
