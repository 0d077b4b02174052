package resolver

import (
	"context"
	"sync"

	"github.com/foodingo/foodingo/pkg/recipe"
	"github.com/foodingo/foodingo/pkg/session"
)

// Mock implements Resolver for testing.
type Mock struct {
	// ResolveFunc is called when Resolve is invoked.
	// If nil, returns results from the Results queue.
	ResolveFunc func(ctx context.Context, input string, snap session.Snapshot, rec *recipe.Recipe) (*Result, error)

	// Results is a queue of canned results returned in order.
	// When exhausted, Resolve returns a no-op result.
	Results []*Result

	// IntroFunc overrides StepIntroduction when set.
	IntroFunc func(snap session.Snapshot, rec *recipe.Recipe) string

	mu     sync.Mutex
	next   int
	inputs []string
}

// NewMock creates a mock resolver that replays the given results.
func NewMock(results ...*Result) *Mock {
	return &Mock{Results: results}
}

// Resolve records the input and returns the next canned result.
func (m *Mock) Resolve(ctx context.Context, input string, snap session.Snapshot, rec *recipe.Recipe) (*Result, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, input, snap, rec)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next >= len(m.Results) {
		return &Result{Action: session.ActionNone, Response: "Okay."}, nil
	}
	r := m.Results[m.next]
	m.next++
	return r, nil
}

// StepIntroduction returns a simple numbered introduction.
func (m *Mock) StepIntroduction(ctx context.Context, snap session.Snapshot, rec *recipe.Recipe) string {
	if m.IntroFunc != nil {
		return m.IntroFunc(snap, rec)
	}
	step := rec.StepAt(snap.CurrentStep)
	if step == nil {
		return "All steps complete."
	}
	return step.Instruction
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

// Inputs returns all utterances passed to Resolve.
func (m *Mock) Inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.inputs))
	copy(out, m.inputs)
	return out
}

// Verify Mock implements Resolver at compile time.
var _ Resolver = (*Mock)(nil)
