package audioio

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGateStartsEnabled(t *testing.T) {
	g := NewGate()
	if !g.Enabled() {
		t.Error("new gate should be enabled")
	}
	if !g.Enter() {
		t.Fatal("Enter should succeed on enabled gate")
	}
	g.Exit()
}

func TestGateSuspendBlocksEnter(t *testing.T) {
	g := NewGate()

	if err := g.Suspend(context.Background()); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if g.Enter() {
		t.Error("Enter should fail while suspended")
	}

	g.Resume()
	if !g.Enter() {
		t.Error("Enter should succeed after Resume")
	}
	g.Exit()
}

func TestGateSuspendWaitsForCriticalSection(t *testing.T) {
	g := NewGate()

	if !g.Enter() {
		t.Fatal("Enter failed")
	}

	suspended := make(chan struct{})
	go func() {
		g.Suspend(context.Background())
		close(suspended)
	}()

	select {
	case <-suspended:
		t.Fatal("Suspend returned while capture was inside critical section")
	case <-time.After(50 * time.Millisecond):
	}

	g.Exit()

	select {
	case <-suspended:
	case <-time.After(time.Second):
		t.Fatal("Suspend did not return after Exit")
	}
}

func TestGateSuspendHonorsContext(t *testing.T) {
	g := NewGate()

	if !g.Enter() {
		t.Fatal("Enter failed")
	}
	defer g.Exit()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := g.Suspend(ctx); err == nil {
		t.Error("Suspend should return the context error when cancelled")
	}
	if g.Enabled() {
		t.Error("gate should stay suspended after cancelled Suspend")
	}
}

func TestGateConcurrentSections(t *testing.T) {
	g := NewGate()

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if g.Enter() {
					g.Exit()
				}
			}
		}()
	}
	wg.Wait()

	if err := g.Suspend(context.Background()); err != nil {
		t.Fatalf("Suspend after workers finished: %v", err)
	}
}
