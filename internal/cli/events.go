package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"partforge/internal/agent"
	"partforge/internal/state"
)

var (
	eventsFollow   bool
	eventsInterval time.Duration
	eventsJSON     bool
)

var eventsCmd = &cobra.Command{
	Use:   "events <run-id>",
	Short: "Replay a run's event timeline",
	Long: `Replay the persisted event log of a run, rendered the same way the
run command renders live progress.

With --follow, keeps watching the log for new events. This gives a
read-only view of a run still in flight from another terminal; it
stops once the run record lands.

Example:
  partforge events 3f1c9a2e-8c1b-4a4e-9f2d-0c5b6a7d8e9f
  partforge events 3f1c9a2e-8c1b-4a4e-9f2d-0c5b6a7d8e9f --follow
  partforge events 3f1c9a2e-8c1b-4a4e-9f2d-0c5b6a7d8e9f --json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runEvents,
}

func init() {
	eventsCmd.Flags().BoolVarP(&eventsFollow, "follow", "f", false, "watch for new events")
	eventsCmd.Flags().DurationVar(&eventsInterval, "interval", 2*time.Second, "poll interval for --follow")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "print raw event lines as JSON")

	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	id := args[0]

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	store := state.NewStore(cwd)
	path := store.EventLogPath(id)
	printer := &eventPrinter{out: os.Stdout}

	var lastSeq uint64
	drain := func() error {
		events, err := state.ReadEvents(path)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if ev.Seq <= lastSeq {
				continue
			}
			if err := printLoggedEvent(printer, ev); err != nil {
				return err
			}
			lastSeq = ev.Seq
		}
		return nil
	}

	if err := drain(); err != nil {
		return fmt.Errorf("failed to read event log: %w", err)
	}
	if lastSeq == 0 && !store.RunExists(id) && !eventsFollow {
		return fmt.Errorf("no events for run: %s", id)
	}

	if !eventsFollow {
		return nil
	}

	if !eventsJSON {
		fmt.Printf("\n--- Following run (Ctrl+C to stop) ---\n\n")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(eventsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigCh:
			fmt.Printf("\nStopped.\n")
			return nil
		case <-ticker.C:
			if err := drain(); err != nil {
				return fmt.Errorf("failed to read event log: %w", err)
			}
			// The record is saved after the final event, so once it
			// exists one more drain has caught everything.
			if run, err := store.GetRun(id); err == nil {
				if err := drain(); err != nil {
					return fmt.Errorf("failed to read event log: %w", err)
				}
				if !eventsJSON {
					fmt.Printf("\nRun finished: %s\n", run.Status)
				}
				return nil
			}
		}
	}
}

func printLoggedEvent(printer *eventPrinter, ev state.LoggedEvent) error {
	if eventsJSON {
		line, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		fmt.Println(string(line))
		return nil
	}
	printer.print(agent.Event{Name: ev.Name, Fields: ev.Fields})
	return nil
}
