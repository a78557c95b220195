package agent

import (
	"go.uber.org/zap"
)

// Event is one structured notification from a run in progress:
// lifecycle (start, exhausted), pre-flight findings (analysis_complete,
// context_sliced, deps_resolved), and per-attempt progress and failures
// (llm_call, xml_invalid, compile_success, ...).
type Event struct {
	Name   string
	Fields map[string]any
}

// Observer receives events synchronously from the run goroutine.
// Observers must not block; a panic in an observer is contained and
// logged rather than aborting the run.
type Observer func(Event)

func (a *Agent) emit(name string, fields map[string]any) {
	a.logger.Debug("event", zap.String("event", name), zap.Any("fields", fields))
	if a.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("observer panicked",
				zap.String("event", name),
				zap.Any("panic", r))
		}
	}()
	a.observer(Event{Name: name, Fields: fields})
}
