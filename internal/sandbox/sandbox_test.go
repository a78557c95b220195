package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSandbox(t *testing.T) (*Sandbox, string, string) {
	t.Helper()
	root := t.TempDir()
	srcDir := filepath.Join(root, "src")
	outDir := filepath.Join(root, "output")
	require.NoError(t, os.MkdirAll(srcDir, 0755))
	require.NoError(t, os.MkdirAll(outDir, 0755))
	sb := New(srcDir, filepath.Join(root, "work"), outDir)
	return sb, srcDir, outDir
}

func TestPrepareCreatesDistinctAttemptPaths(t *testing.T) {
	sb, srcDir, outDir := newTestSandbox(t)
	defer sb.Cleanup()

	first, err := sb.Prepare("cabinet.xml", "cabinet.gsm", 1)
	require.NoError(t, err)
	second, err := sb.Prepare("cabinet.xml", "cabinet.gsm", 2)
	require.NoError(t, err)

	assert.NotEqual(t, first.TempSource, second.TempSource)
	assert.NotEqual(t, first.TempOutput, second.TempOutput)
	assert.NotEqual(t, first.TempSource, first.FinalSource)
	assert.NotEqual(t, first.TempOutput, first.FinalOutput)
	assert.Equal(t, filepath.Join(srcDir, "cabinet.xml"), first.FinalSource)
	assert.Equal(t, filepath.Join(outDir, "cabinet.gsm"), first.FinalOutput)
	assert.Equal(t, first.FinalSource, second.FinalSource)
}

func TestConcurrentRunsGetSeparateWorkRoots(t *testing.T) {
	root := t.TempDir()
	workDir := filepath.Join(root, "work")

	a := New(filepath.Join(root, "src"), workDir, filepath.Join(root, "output"))
	b := New(filepath.Join(root, "src"), workDir, filepath.Join(root, "output"))
	defer a.Cleanup()
	defer b.Cleanup()

	assert.NotEqual(t, a.WorkRoot(), b.WorkRoot())

	pa, err := a.Prepare("part.xml", "part.gsm", 1)
	require.NoError(t, err)
	pb, err := b.Prepare("part.xml", "part.gsm", 1)
	require.NoError(t, err)
	assert.NotEqual(t, pa.TempSource, pb.TempSource)
}

func TestWriteTempLeavesCanonicalUntouched(t *testing.T) {
	sb, srcDir, _ := newTestSandbox(t)
	defer sb.Cleanup()

	canonical := filepath.Join(srcDir, "cabinet.xml")
	require.NoError(t, os.WriteFile(canonical, []byte("original"), 0644))

	paths, err := sb.Prepare("cabinet.xml", "cabinet.gsm", 1)
	require.NoError(t, err)
	require.NoError(t, sb.WriteTemp(paths, "candidate"))

	data, err := os.ReadFile(canonical)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))

	temp, err := os.ReadFile(paths.TempSource)
	require.NoError(t, err)
	assert.Equal(t, "candidate", string(temp))
}

func TestPromoteReplacesSourceAndOutput(t *testing.T) {
	sb, srcDir, outDir := newTestSandbox(t)
	defer sb.Cleanup()

	canonical := filepath.Join(srcDir, "cabinet.xml")
	require.NoError(t, os.WriteFile(canonical, []byte("original"), 0644))

	paths, err := sb.Prepare("cabinet.xml", "cabinet.gsm", 1)
	require.NoError(t, err)
	require.NoError(t, sb.WriteTemp(paths, "accepted candidate"))
	require.NoError(t, os.WriteFile(paths.TempOutput, []byte("compiled"), 0644))

	require.NoError(t, sb.Promote(paths))

	src, err := os.ReadFile(canonical)
	require.NoError(t, err)
	assert.Equal(t, "accepted candidate", string(src))

	out, err := os.ReadFile(filepath.Join(outDir, "cabinet.gsm"))
	require.NoError(t, err)
	assert.Equal(t, "compiled", string(out))
}

func TestPromoteWithoutOutputLeavesCanonicalIntact(t *testing.T) {
	sb, srcDir, outDir := newTestSandbox(t)
	defer sb.Cleanup()

	canonical := filepath.Join(srcDir, "cabinet.xml")
	require.NoError(t, os.WriteFile(canonical, []byte("original"), 0644))

	paths, err := sb.Prepare("cabinet.xml", "cabinet.gsm", 1)
	require.NoError(t, err)
	require.NoError(t, sb.WriteTemp(paths, "candidate"))

	// Temp output was never produced, so promotion must fail before
	// the canonical source is touched.
	require.Error(t, sb.Promote(paths))

	src, err := os.ReadFile(canonical)
	require.NoError(t, err)
	assert.Equal(t, "original", string(src))
	assert.NoFileExists(t, filepath.Join(outDir, "cabinet.gsm"))
}

func TestPromoteLeavesNoStagingFiles(t *testing.T) {
	sb, srcDir, outDir := newTestSandbox(t)
	defer sb.Cleanup()

	paths, err := sb.Prepare("cabinet.xml", "cabinet.gsm", 1)
	require.NoError(t, err)
	require.NoError(t, sb.WriteTemp(paths, "candidate"))
	require.NoError(t, os.WriteFile(paths.TempOutput, []byte("compiled"), 0644))
	require.NoError(t, sb.Promote(paths))

	for _, dir := range []string{srcDir, outDir} {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.NotContains(t, entries[0].Name(), ".tmp-")
	}
}

func TestArchiveAttemptMovesTempFiles(t *testing.T) {
	sb, _, _ := newTestSandbox(t)
	defer sb.Cleanup()

	paths, err := sb.Prepare("cabinet.xml", "cabinet.gsm", 1)
	require.NoError(t, err)
	require.NoError(t, sb.WriteTemp(paths, "rejected"))

	require.NoError(t, sb.ArchiveAttempt(paths))

	assert.NoFileExists(t, paths.TempSource)
	archived := filepath.Join(sb.WorkRoot(), "archive", "attempt-1", "cabinet.xml")
	data, err := os.ReadFile(archived)
	require.NoError(t, err)
	assert.Equal(t, "rejected", string(data))
}

func TestCleanupRemovesWorkRoot(t *testing.T) {
	sb, _, _ := newTestSandbox(t)

	paths, err := sb.Prepare("cabinet.xml", "cabinet.gsm", 1)
	require.NoError(t, err)
	require.NoError(t, sb.WriteTemp(paths, "candidate"))
	require.NoError(t, sb.ArchiveAttempt(paths))

	require.NoError(t, sb.Cleanup())
	assert.NoDirExists(t, sb.WorkRoot())
}
