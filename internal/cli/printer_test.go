package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"partforge/internal/agent"
)

func TestEventPrinter_AttemptFlow(t *testing.T) {
	var buf bytes.Buffer
	p := &eventPrinter{out: &buf}

	p.print(agent.Event{Name: "start", Fields: map[string]any{
		"instruction": "add a shelf", "source": "src/cabinet.xml", "max_iterations": 5,
	}})
	p.print(agent.Event{Name: "attempt_start", Fields: map[string]any{"attempt": 1, "max_attempts": 5}})
	p.print(agent.Event{Name: "validation_passed", Fields: map[string]any{"attempt": 1}})
	p.print(agent.Event{Name: "compile_success", Fields: map[string]any{
		"attempt": 1, "output": "/out/cabinet.gsm", "duration_ms": int64(42),
	}})

	out := buf.String()
	assert.Contains(t, out, "Run: add a shelf")
	assert.Contains(t, out, "attempt 1/5")
	assert.Contains(t, out, "validation passed")
	assert.Contains(t, out, "compiled in 42ms -> /out/cabinet.gsm")
}

func TestEventPrinter_CompileFailureIndented(t *testing.T) {
	var buf bytes.Buffer
	p := &eventPrinter{out: &buf}

	p.print(agent.Event{Name: "compile_failed", Fields: map[string]any{
		"attempt": 2,
		"error":   "GDL Error: unbalanced IF\nline 14: GOSUB target missing",
	}})

	out := buf.String()
	assert.Contains(t, out, "compile failed:")
	assert.Contains(t, out, "    GDL Error: unbalanced IF")
	assert.Contains(t, out, "    line 14: GOSUB target missing")
}

func TestEventPrinter_Quiet(t *testing.T) {
	var buf bytes.Buffer
	p := &eventPrinter{out: &buf, quiet: true}

	p.print(agent.Event{Name: "attempt_start", Fields: map[string]any{"attempt": 1, "max_attempts": 5}})
	p.printResult(&agent.Result{Status: agent.StatusSuccess, Attempts: 1}, "run-x")

	assert.Empty(t, buf.String())
}

func TestEventPrinter_UnknownEventStillRendered(t *testing.T) {
	var buf bytes.Buffer
	p := &eventPrinter{out: &buf}

	p.print(agent.Event{Name: "custom_marker", Fields: map[string]any{"k": "v"}})

	assert.Contains(t, buf.String(), "custom_marker")
}

func TestEventPrinter_Result_Success(t *testing.T) {
	var buf bytes.Buffer
	p := &eventPrinter{out: &buf}

	p.printResult(&agent.Result{
		Status:          agent.StatusSuccess,
		Attempts:        2,
		OutputPath:      "/out/stool.gsm",
		TotalTokens:     1800,
		TotalDurationMS: 6400,
	}, "run-123")

	out := buf.String()
	assert.Contains(t, out, "SUCCESS")
	assert.Contains(t, out, "2 attempt(s)")
	assert.Contains(t, out, "1800 tokens")
	assert.Contains(t, out, "6.4s")
	assert.Contains(t, out, "output: /out/stool.gsm")
	assert.Contains(t, out, "run id: run-123")
}

func TestEventPrinter_Result_Failure(t *testing.T) {
	var buf bytes.Buffer
	p := &eventPrinter{out: &buf}

	p.printResult(&agent.Result{
		Status:       agent.StatusExhausted,
		Attempts:     5,
		ErrorSummary: "GDL Error: CALL parameter mismatch",
	}, "run-456")

	out := buf.String()
	assert.Contains(t, out, "EXHAUSTED")
	assert.Contains(t, out, "GDL Error: CALL parameter mismatch")
	assert.NotContains(t, out, "output:")
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a\n  b", indent("a\nb", "  "))
	assert.Equal(t, "  a", indent("a\n", "  "))
	assert.Equal(t, "  ", indent("", "  "))
}

func TestFormatMillis(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		want string
	}{
		{"sub-second", 420, "420ms"},
		{"zero", 0, "0ms"},
		{"seconds", 1500, "1.5s"},
		{"minutes stay seconds", 95000, "95.0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMillis(tt.ms))
		})
	}
}
