package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partforge/internal/config"
)

func sampleRecord(id string, startedAt time.Time) *RunRecord {
	return &RunRecord{
		ID:              id,
		Instruction:     "add a middle shelf",
		SourcePath:      "src/cabinet.xml",
		OutputPath:      "output/cabinet.gsm",
		Status:          "success",
		Attempts:        2,
		TotalTokens:     1234,
		TotalDurationMS: 4200,
		StartedAt:       startedAt,
		FinishedAt:      startedAt.Add(4200 * time.Millisecond),
	}
}

func TestStore_SaveAndGetRun(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	store := NewStore(tmpDir)

	record := sampleRecord("run-1", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, store.SaveRun(record))

	assert.FileExists(t, filepath.Join(tmpDir, config.DirName, "runs", "run-1.json"))

	got, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestStore_SaveRunRequiresID(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	err := store.SaveRun(&RunRecord{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ID")
}

func TestStore_GetRunNotFound(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	_, err := store.GetRun("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveRun(sampleRecord("older", base)))
	require.NoError(t, store.SaveRun(sampleRecord("newest", base.Add(2*time.Hour))))
	require.NoError(t, store.SaveRun(sampleRecord("middle", base.Add(time.Hour))))

	records, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "newest", records[0].ID)
	assert.Equal(t, "middle", records[1].ID)
	assert.Equal(t, "older", records[2].ID)
}

func TestStore_ListRunsEmptyDir(t *testing.T) {
	t.Parallel()

	records, err := NewStore(t.TempDir()).ListRuns()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStore_ListRunsSkipsInvalidFiles(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	store := NewStore(tmpDir)
	require.NoError(t, store.SaveRun(sampleRecord("good", time.Now().UTC())))

	runsDir := filepath.Join(tmpDir, config.DirName, "runs")
	require.NoError(t, os.WriteFile(filepath.Join(runsDir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(store.EventLogPath("good"), []byte("{}\n"), 0o644))

	records, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "good", records[0].ID)
}

func TestStore_DeleteRun(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	store := NewStore(tmpDir)

	record := sampleRecord("run-del", time.Now().UTC())
	require.NoError(t, store.SaveRun(record))
	require.NoError(t, os.WriteFile(store.EventLogPath("run-del"), []byte("{}\n"), 0o644))
	require.True(t, store.RunExists("run-del"))

	require.NoError(t, store.DeleteRun("run-del"))
	assert.False(t, store.RunExists("run-del"))
	assert.NoFileExists(t, store.EventLogPath("run-del"))

	// Deleting a missing run is not an error.
	assert.NoError(t, store.DeleteRun("run-del"))
}
