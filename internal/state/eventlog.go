package state

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LoggedEvent is one line of a run's event log. Events are stored as
// newline-delimited JSON with sequence numbers assigned on append, so
// a partially written final line never corrupts earlier entries.
type LoggedEvent struct {
	Seq    uint64         `json:"seq"`
	TS     time.Time      `json:"ts"`
	Name   string         `json:"event"`
	Fields map[string]any `json:"fields,omitempty"`
}

// EventLog appends run events to an NDJSON file.
type EventLog struct {
	mu      sync.Mutex
	file    *os.File
	nextSeq uint64
	closed  bool
}

// OpenEventLog opens (or creates) the event log at path in append
// mode.
func OpenEventLog(path string) (*EventLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create event log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return &EventLog{file: file, nextSeq: 1}, nil
}

// Append writes one event line. Safe for concurrent use.
func (l *EventLog) Append(name string, fields map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("event log is closed")
	}

	event := LoggedEvent{
		Seq:    l.nextSeq,
		TS:     time.Now().UTC(),
		Name:   name,
		Fields: fields,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	l.nextSeq++
	return nil
}

// Close flushes and closes the log file. Further appends fail.
func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

// ReadEvents loads every complete event line from a log file.
// Unparseable lines (for example a torn final write) are skipped.
func ReadEvents(path string) ([]LoggedEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []LoggedEvent{}, nil
		}
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer file.Close()

	var events []LoggedEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event LoggedEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}

	return events, nil
}
