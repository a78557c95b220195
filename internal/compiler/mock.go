package compiler

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

var (
	mockIfRe    = regexp.MustCompile(`(?i)\bIF\b`)
	mockEndifRe = regexp.MustCompile(`(?i)\bENDIF\b`)
)

// Mock implements Compiler for testing without ArchiCAD. It enforces
// a deliberately picky subset of converter behavior: well-formed XML,
// a Symbol root, and an equal count of IF and ENDIF tokens in the 3D
// script. A configured fail pattern rejects any source containing it,
// which lets tests stage failures that a revised candidate clears.
type Mock struct {
	mu sync.Mutex

	available   bool
	failPattern string
	compileFunc func(ctx context.Context, source, output string) *Result

	compileCalls []MockCompileCall
}

// MockCompileCall records a Compile call.
type MockCompileCall struct {
	Source string
	Output string
}

// NewMock creates an available Mock with no fail pattern.
func NewMock() *Mock {
	return &Mock{available: true}
}

// SetAvailable controls what Available reports.
func (m *Mock) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// SetFailPattern makes Compile fail whenever the source contains
// pattern. An empty pattern disables the check.
func (m *Mock) SetFailPattern(pattern string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPattern = pattern
}

// SetCompileFunc sets a custom compile function, bypassing the
// built-in checks.
func (m *Mock) SetCompileFunc(fn func(ctx context.Context, source, output string) *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compileFunc = fn
}

// Available reports the configured availability.
func (m *Mock) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// mockSymbol is the slice of the document the built-in checks look at.
type mockSymbol struct {
	XMLName  xml.Name
	Script3D string `xml:"Script_3D"`
}

// Compile validates the source and writes a placeholder artifact on
// success.
func (m *Mock) Compile(ctx context.Context, source, output string) *Result {
	m.mu.Lock()
	m.compileCalls = append(m.compileCalls, MockCompileCall{Source: source, Output: output})
	available := m.available
	pattern := m.failPattern
	fn := m.compileFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, source, output)
	}
	if !available {
		return &Result{
			ExitCode: ExitUnavailable,
			Stderr:   "mock converter marked unavailable",
		}
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return &Result{ExitCode: 1, Stderr: fmt.Sprintf("File not found: %s", source)}
	}
	content := string(data)

	var sym mockSymbol
	if err := xml.Unmarshal(data, &sym); err != nil {
		return &Result{ExitCode: 1, Stderr: fmt.Sprintf("XML Parse Error: %v", err)}
	}

	if pattern != "" && strings.Contains(content, pattern) {
		return &Result{
			ExitCode: 1,
			Stderr:   fmt.Sprintf("GDL Error: Pattern check failed for '%s'", pattern),
		}
	}

	var errs []string
	if sym.XMLName.Local != "Symbol" {
		errs = append(errs, fmt.Sprintf("Root element must be 'Symbol', got '%s'", sym.XMLName.Local))
	}
	if sym.Script3D != "" {
		ifCount := len(mockIfRe.FindAllString(sym.Script3D, -1))
		endifCount := len(mockEndifRe.FindAllString(sym.Script3D, -1))
		if ifCount != endifCount {
			errs = append(errs, fmt.Sprintf("Mismatched IF/ENDIF (IF: %d, ENDIF: %d)", ifCount, endifCount))
		}
	}
	if len(errs) > 0 {
		return &Result{ExitCode: 1, Stderr: strings.Join(errs, "\n")}
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return &Result{ExitCode: 1, Stderr: fmt.Sprintf("failed to create output directory: %v", err)}
	}
	if err := os.WriteFile(output, []byte(fmt.Sprintf("[mock-gsm] from %s", source)), 0644); err != nil {
		return &Result{ExitCode: 1, Stderr: fmt.Sprintf("failed to write artifact: %v", err)}
	}

	return &Result{
		Success:    true,
		Stdout:     fmt.Sprintf("Compiled: %s", output),
		OutputPath: output,
	}
}

// Decompile is not supported by the mock.
func (m *Mock) Decompile(ctx context.Context, artifact, outputDir string) *Result {
	return &Result{Stderr: "mock converter does not support decompile"}
}

// CompileCalls returns a copy of the recorded Compile calls.
func (m *Mock) CompileCalls() []MockCompileCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCompileCall, len(m.compileCalls))
	copy(result, m.compileCalls)
	return result
}

// CompileCount returns how many times Compile was called.
func (m *Mock) CompileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.compileCalls)
}

// Reset clears recorded calls and configuration.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = true
	m.failPattern = ""
	m.compileFunc = nil
	m.compileCalls = nil
}

// Verify Mock implements Compiler interface.
var _ Compiler = (*Mock)(nil)
