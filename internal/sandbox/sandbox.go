// Package sandbox owns per-attempt filesystem isolation for the
// generation loop. Candidates are written to attempt-scoped temp paths
// under a run-unique working root; the canonical source and compiled
// output are only ever touched by Promote, which replaces them
// atomically. Failed attempts are archived, and the whole working root
// is removed at terminal state.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Paths carries the file locations for one attempt. A fresh instance
// is allocated per attempt and never reused.
type Paths struct {
	Attempt     int    `json:"attempt"`
	TempSource  string `json:"temp_source"`
	TempOutput  string `json:"temp_output"`
	FinalSource string `json:"final_source"`
	FinalOutput string `json:"final_output"`
}

// Sandbox manages the working directory for a single run. The working
// root embeds a random run ID, so concurrent runs with a shared workDir
// cannot collide.
type Sandbox struct {
	sourceDir string
	outputDir string
	workRoot  string
}

// New creates a Sandbox that promotes into sourceDir and outputDir and
// keeps transient attempt state under workDir.
func New(sourceDir, workDir, outputDir string) *Sandbox {
	return &Sandbox{
		sourceDir: sourceDir,
		outputDir: outputDir,
		workRoot:  filepath.Join(workDir, "run-"+uuid.NewString()[:8]),
	}
}

// WorkRoot returns the run's working directory.
func (s *Sandbox) WorkRoot() string {
	return s.workRoot
}

// Prepare allocates the attempt's paths and creates its temp
// directory. Temp paths are distinct from the canonical paths and from
// every other attempt's paths.
func (s *Sandbox) Prepare(sourceName, outputName string, attempt int) (*Paths, error) {
	attemptDir := filepath.Join(s.workRoot, fmt.Sprintf("attempt-%d", attempt))
	if err := os.MkdirAll(attemptDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create attempt directory: %w", err)
	}
	return &Paths{
		Attempt:     attempt,
		TempSource:  filepath.Join(attemptDir, sourceName),
		TempOutput:  filepath.Join(attemptDir, outputName),
		FinalSource: filepath.Join(s.sourceDir, sourceName),
		FinalOutput: filepath.Join(s.outputDir, outputName),
	}, nil
}

// WriteTemp writes a candidate to the attempt's temp source path. The
// canonical artifact is untouched.
func (s *Sandbox) WriteTemp(paths *Paths, content string) error {
	if err := os.WriteFile(paths.TempSource, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write sandbox source: %w", err)
	}
	return nil
}

// Promote is the single mutation point for the canonical artifact: it
// copies the accepted candidate and its compiled output to their final
// paths. Each copy lands via write-to-temp-then-rename in the
// destination directory, so an interrupted promotion leaves whichever
// complete state preceded the call. The output is promoted first; the
// canonical source is only replaced once its compiled artifact is in
// place.
func (s *Sandbox) Promote(paths *Paths) error {
	if err := atomicCopy(paths.TempOutput, paths.FinalOutput); err != nil {
		return fmt.Errorf("failed to promote output: %w", err)
	}
	if err := atomicCopy(paths.TempSource, paths.FinalSource); err != nil {
		return fmt.Errorf("failed to promote source: %w", err)
	}
	return nil
}

// ArchiveAttempt moves a failed attempt's files to an inert archive
// location under the working root, never leaving them at canonical
// paths.
func (s *Sandbox) ArchiveAttempt(paths *Paths) error {
	attemptDir := filepath.Dir(paths.TempSource)
	archiveDir := filepath.Join(s.workRoot, "archive")
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	dest := filepath.Join(archiveDir, filepath.Base(attemptDir))
	if err := os.Rename(attemptDir, dest); err != nil {
		return fmt.Errorf("failed to archive attempt: %w", err)
	}
	return nil
}

// Cleanup removes the run's entire working directory, including any
// archived attempts.
func (s *Sandbox) Cleanup() error {
	if err := os.RemoveAll(s.workRoot); err != nil {
		return fmt.Errorf("failed to clean up sandbox: %w", err)
	}
	return nil
}

// atomicCopy replaces dst with the contents of src. The write goes to
// a temp file in dst's directory and lands with a rename, so dst is
// always either its old or its new complete content.
func atomicCopy(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	tmp := dst + ".tmp-" + uuid.NewString()[:8]
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to stage %s: %w", dst, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", dst, err)
	}
	return nil
}
