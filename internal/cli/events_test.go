package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partforge/internal/state"
)

func writeEventLogFixture(t *testing.T, baseDir, runID string) {
	t.Helper()
	store := state.NewStore(baseDir)
	eventLog, err := state.OpenEventLog(store.EventLogPath(runID))
	require.NoError(t, err)
	defer eventLog.Close()

	require.NoError(t, eventLog.Append("attempt_start", map[string]any{"attempt": 1, "max_attempts": 5}))
	require.NoError(t, eventLog.Append("validation_passed", map[string]any{"attempt": 1}))
	require.NoError(t, eventLog.Append("compile_failed", map[string]any{"attempt": 1, "error": "GDL Error: unbalanced IF"}))
}

func TestEventsCommand_Replays(t *testing.T) {
	tmpDir := chdirTemp(t)
	writeEventLogFixture(t, tmpDir, "run-evt")

	output := captureOutput(func() {
		err := runEvents(eventsCmd, []string{"run-evt"})
		require.NoError(t, err)
	})

	assert.Contains(t, output, "attempt 1/5")
	assert.Contains(t, output, "validation passed")
	assert.Contains(t, output, "GDL Error: unbalanced IF")
}

func TestEventsCommand_UnknownRun(t *testing.T) {
	chdirTemp(t)

	err := runEvents(eventsCmd, []string{"no-such-run"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no events for run")
}

func TestEventsCommand_JSON(t *testing.T) {
	tmpDir := chdirTemp(t)
	writeEventLogFixture(t, tmpDir, "run-evt")

	eventsJSON = true
	defer func() { eventsJSON = false }()

	output := captureOutput(func() {
		err := runEvents(eventsCmd, []string{"run-evt"})
		require.NoError(t, err)
	})

	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 3)

	var first state.LoggedEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, "attempt_start", first.Name)
}
