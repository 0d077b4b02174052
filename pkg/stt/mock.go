package stt

import (
	"context"
	"sync"
)

// Mock implements Recognizer for testing.
type Mock struct {
	// RecognizeFunc is called when Recognize is invoked.
	// If nil, returns transcripts from the Transcripts queue.
	RecognizeFunc func(ctx context.Context, pcm []byte, sampleRate int) (string, error)

	// Transcripts is a queue of canned transcripts returned in order.
	// When exhausted, Recognize returns "".
	Transcripts []string

	mu    sync.Mutex
	next  int
	calls int
}

// NewMock creates a mock recognizer that replays the given transcripts.
func NewMock(transcripts ...string) *Mock {
	return &Mock{Transcripts: transcripts}
}

// Recognize returns the next canned transcript or calls RecognizeFunc.
func (m *Mock) Recognize(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, pcm, sampleRate)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next >= len(m.Transcripts) {
		return "", nil
	}
	text := m.Transcripts[m.next]
	m.next++
	return text, nil
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// CallCount returns the number of Recognize invocations.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Verify Mock implements Recognizer at compile time.
var _ Recognizer = (*Mock)(nil)
