package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"partforge/internal/state"
)

// RunReader abstracts run record storage for testability.
type RunReader interface {
	ListRuns() ([]*state.RunRecord, error)
	GetRun(id string) (*state.RunRecord, error)
}

// runsStore is the run reader used by the runs command.
// It can be overridden in tests.
var runsStore RunReader

var runsJSON bool

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "Show finished runs",
	Long: `Shows persisted run records.

Without arguments, lists all runs newest first with their status and
attempt count. With a run ID, shows detailed information for that run.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runRuns,
}

func init() {
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "print records as JSON")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	store := runsStore
	if store == nil {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		store = state.NewStore(cwd)
	}

	if len(args) == 0 {
		return listRuns(store)
	}

	return showRun(store, args[0])
}

func listRuns(store RunReader) error {
	runs, err := store.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if runsJSON {
		if runs == nil {
			runs = []*state.RunRecord{}
		}
		output, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal runs: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	// Calculate column widths
	idWidth := len("ID")
	statusWidth := len("STATUS")
	for _, r := range runs {
		if len(r.ID) > idWidth {
			idWidth = len(r.ID)
		}
		if len(r.Status) > statusWidth {
			statusWidth = len(r.Status)
		}
	}

	// Print header
	fmt.Printf("%-*s  %-*s  %-8s  %-19s  %s\n", idWidth, "ID", statusWidth, "STATUS", "ATTEMPTS", "STARTED", "INSTRUCTION")
	fmt.Printf("%s  %s  %s  %s  %s\n",
		strings.Repeat("-", idWidth), strings.Repeat("-", statusWidth),
		"--------", strings.Repeat("-", 19), "-----------")

	// Print runs
	for _, r := range runs {
		fmt.Printf("%-*s  %-*s  %-8d  %-19s  %s\n",
			idWidth, r.ID, statusWidth, r.Status, r.Attempts,
			formatTime(r.StartedAt), truncate(r.Instruction, 48))
	}

	return nil
}

func showRun(store RunReader, id string) error {
	run, err := store.GetRun(id)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}

	if runsJSON {
		output, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	elapsed := run.FinishedAt.Sub(run.StartedAt)

	// Format output with aligned labels
	fmt.Println("Run Details")
	fmt.Println("===========")
	fmt.Println()

	printField("ID", run.ID)
	printField("Instruction", run.Instruction)
	printField("Source", run.SourcePath)
	if run.OutputPath != "" {
		printField("Output", run.OutputPath)
	}
	printField("Started", formatTime(run.StartedAt))
	printField("Elapsed", formatDuration(elapsed))
	printField("Status", run.Status)
	printField("Attempts", fmt.Sprintf("%d", run.Attempts))
	printField("Tokens", fmt.Sprintf("%d", run.TotalTokens))

	if run.ErrorSummary != "" {
		printField("Error", run.ErrorSummary)
	}

	fmt.Println()
	fmt.Printf("Event timeline: partforge events %s\n", run.ID)

	return nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func printField(label, value string) {
	fmt.Printf("  %-14s %s\n", label+":", value)
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
