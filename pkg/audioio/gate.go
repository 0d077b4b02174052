package audioio

import (
	"context"
	"sync"
)

// Gate enforces half-duplex operation between capture and playback.
// While the assistant speaks the gate is suspended, and the capture
// loop stops delivering microphone audio so the assistant does not
// transcribe its own voice.
//
// The capture loop brackets its capture-and-recognize section with
// Enter and Exit. Suspend does not return until every in-flight
// section has exited, so the speaker knows capture is truly quiet
// before the first sample plays.
type Gate struct {
	mu      sync.Mutex
	enabled bool
	inside  int
	idleCh  chan struct{}
}

// NewGate returns an enabled gate.
func NewGate() *Gate {
	return &Gate{enabled: true}
}

// Enter marks the start of a capture critical section. It returns
// false if the gate is suspended, in which case the caller must skip
// the section and must not call Exit.
func (g *Gate) Enter() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.enabled {
		return false
	}
	g.inside++
	return true
}

// Exit marks the end of a capture critical section.
func (g *Gate) Exit() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inside--
	if g.inside < 0 {
		panic("audioio: Gate.Exit without matching Enter")
	}
	if g.inside == 0 && g.idleCh != nil {
		close(g.idleCh)
		g.idleCh = nil
	}
}

// Suspend disables the gate and blocks until all in-flight capture
// sections have exited. Returns early with the context error if ctx
// is cancelled while waiting; the gate stays suspended either way.
func (g *Gate) Suspend(ctx context.Context) error {
	g.mu.Lock()
	g.enabled = false
	if g.inside == 0 {
		g.mu.Unlock()
		return nil
	}
	if g.idleCh == nil {
		g.idleCh = make(chan struct{})
	}
	ch := g.idleCh
	g.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// Resume re-enables the gate.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = true
}

// Enabled reports whether capture is currently permitted.
func (g *Gate) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}
