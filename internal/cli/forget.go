package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"partforge/internal/state"
)

var (
	forgetForce bool
	forgetAll   bool
)

var forgetCmd = &cobra.Command{
	Use:   "forget [run-id]",
	Short: "Delete run records",
	Long: `Delete a run's persisted record and event log. The generated source
and compiled artifacts are not touched.

Examples:
  partforge forget 3f1c9a2e-8c1b-4a4e-9f2d-0c5b6a7d8e9f
  partforge forget --all             # delete every run record
  partforge forget --all --force     # skip confirmation`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runForget,
}

func init() {
	forgetCmd.Flags().BoolVar(&forgetForce, "force", false, "skip confirmation prompt")
	forgetCmd.Flags().BoolVar(&forgetAll, "all", false, "delete all run records")

	rootCmd.AddCommand(forgetCmd)
}

func runForget(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	store := state.NewStore(cwd)

	if forgetAll {
		if len(args) > 0 {
			return fmt.Errorf("cannot specify a run ID with --all")
		}
		return forgetAllRuns(store)
	}

	if len(args) == 0 {
		return fmt.Errorf("run ID required (or --all)")
	}
	id := args[0]

	if !store.RunExists(id) {
		return fmt.Errorf("run not found: %s", id)
	}

	if !forgetForce {
		fmt.Printf("This will delete the record and event log of run '%s'.\n", id)
		fmt.Printf("Type 'yes' to confirm: ")

		var response string
		fmt.Scanln(&response)
		if response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := store.DeleteRun(id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	fmt.Printf("Run '%s' forgotten.\n", id)
	return nil
}

func forgetAllRuns(store *state.Store) error {
	runs, err := store.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	if !forgetForce {
		fmt.Printf("This will delete %d run record(s) and their event logs.\n", len(runs))
		fmt.Printf("Type 'yes' to confirm: ")

		var response string
		fmt.Scanln(&response)
		if response != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	for _, run := range runs {
		if err := store.DeleteRun(run.ID); err != nil {
			fmt.Printf("Warning: failed to delete run '%s': %v\n", run.ID, err)
		}
	}

	fmt.Printf("%d run(s) forgotten.\n", len(runs))
	return nil
}
