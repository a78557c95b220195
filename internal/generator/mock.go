package generator

import (
	"context"
	"sync"
)

// Mock implements Client for testing. Responses are served from a
// queue in FIFO order; a custom generate function takes precedence
// when set. All calls are recorded.
type Mock struct {
	mu sync.Mutex

	queue        []mockResult
	generateFunc func(ctx context.Context, messages []Message) (*Response, error)

	calls []MockCall
}

type mockResult struct {
	resp *Response
	err  error
}

// MockCall records a Generate call.
type MockCall struct {
	Messages []Message
}

// NewMock creates a Mock with an empty queue.
func NewMock() *Mock {
	return &Mock{}
}

// Enqueue queues a successful response with the given content.
func (m *Mock) Enqueue(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockResult{resp: &Response{
		Content: content,
		Usage:   Usage{TotalTokens: len(content)},
	}})
}

// EnqueueResponse queues a fully specified response.
func (m *Mock) EnqueueResponse(resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockResult{resp: resp})
}

// EnqueueError queues a call that fails with err.
func (m *Mock) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockResult{err: err})
}

// SetGenerateFunc sets a custom generate function. When set, the
// queue is ignored.
func (m *Mock) SetGenerateFunc(fn func(ctx context.Context, messages []Message) (*Response, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateFunc = fn
}

// Generate serves the next queued result, or runs the custom generate
// function when one is set. An empty queue yields an empty response.
func (m *Mock) Generate(ctx context.Context, messages []Message) (*Response, error) {
	m.mu.Lock()
	recorded := make([]Message, len(messages))
	copy(recorded, messages)
	m.calls = append(m.calls, MockCall{Messages: recorded})
	fn := m.generateFunc
	var next *mockResult
	if fn == nil && len(m.queue) > 0 {
		result := m.queue[0]
		m.queue = m.queue[1:]
		next = &result
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}
	if next != nil {
		return next.resp, next.err
	}
	return &Response{}, nil
}

// Calls returns a copy of the recorded Generate calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns how many times Generate was called.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears all recorded calls and queued results.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
	m.generateFunc = nil
	m.calls = nil
}

// Verify Mock implements Client interface.
var _ Client = (*Mock)(nil)
