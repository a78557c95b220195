package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// LPXMLConverter invokes Graphisoft's LP_XMLConverter binary. The
// binary ships with ArchiCAD; when the configured path does not point
// at it, every call reports ExitUnavailable.
type LPXMLConverter struct {
	path    string
	timeout time.Duration
}

// NewLPXMLConverter creates a converter wrapper for the binary at
// path. A zero timeout disables the per-invocation deadline.
func NewLPXMLConverter(path string, timeout time.Duration) *LPXMLConverter {
	return &LPXMLConverter{path: path, timeout: timeout}
}

// Path returns the configured converter path.
func (c *LPXMLConverter) Path() string {
	return c.path
}

// Available reports whether the converter binary exists.
func (c *LPXMLConverter) Available() bool {
	if c.path == "" {
		return false
	}
	info, err := os.Stat(c.path)
	return err == nil && info.Mode().IsRegular()
}

// Compile runs "LP_XMLConverter xml2libpart source output".
func (c *LPXMLConverter) Compile(ctx context.Context, source, output string) *Result {
	if !c.Available() {
		return &Result{
			ExitCode: ExitUnavailable,
			Stderr: fmt.Sprintf(
				"LP_XMLConverter not found at: %s\nInstall ArchiCAD or set compiler.converter_path.",
				c.path),
		}
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return &Result{
			ExitCode: ExitSpawnFailure,
			Stderr:   fmt.Sprintf("failed to create output directory: %v", err),
		}
	}

	result := c.run(ctx, source, []string{c.path, "xml2libpart", source, output})
	if result.Success {
		result.OutputPath = output
	}
	return result
}

// Decompile runs "LP_XMLConverter libpart2xml artifact outputDir".
func (c *LPXMLConverter) Decompile(ctx context.Context, artifact, outputDir string) *Result {
	if !c.Available() {
		return &Result{
			ExitCode: ExitUnavailable,
			Stderr:   "LP_XMLConverter not found.",
		}
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return &Result{
			ExitCode: ExitSpawnFailure,
			Stderr:   fmt.Sprintf("failed to create output directory: %v", err),
		}
	}

	result := c.run(ctx, "", []string{c.path, "libpart2xml", artifact, outputDir})
	if result.Success {
		result.OutputPath = outputDir
	}
	return result
}

// run executes the converter and classifies the outcome. Timeouts map
// to ExitTimeout, processes that never started to ExitSpawnFailure,
// everything else to the converter's own exit code.
func (c *LPXMLConverter) run(ctx context.Context, source string, command []string) *Result {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	// The converter resolves relative macro references against the
	// working directory, so run next to a file source.
	if source != "" {
		if info, err := os.Stat(source); err == nil && info.Mode().IsRegular() {
			cmd.Dir = filepath.Dir(source)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMS: time.Since(start).Milliseconds(),
		Command:    command,
	}

	if err == nil {
		result.Success = true
		return result
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.ExitCode = ExitTimeout
		result.Stderr = fmt.Sprintf("compilation timed out after %s", c.timeout)
		return result
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result
	}

	result.ExitCode = ExitSpawnFailure
	result.Stderr = fmt.Sprintf("failed to execute LP_XMLConverter: %v", err)
	return result
}

// Verify LPXMLConverter implements Compiler interface.
var _ Compiler = (*LPXMLConverter)(nil)
