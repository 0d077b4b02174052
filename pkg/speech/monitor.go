package speech

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce suppresses repeated interrupt triggers that arrive
// in a burst, such as "stop stop stop".
const DefaultDebounce = 500 * time.Millisecond

// Monitor watches for interrupt signals while the assistant speaks.
// Signals that arrive while the assistant is silent are ignored; at
// most one interrupt fires per utterance.
type Monitor struct {
	speaker  *Speaker
	signals  <-chan string
	debounce time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	lastFired time.Time

	done chan struct{}
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) MonitorOption {
	return func(m *Monitor) { m.debounce = d }
}

// WithMonitorLogger sets the structured logger.
func WithMonitorLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = logger }
}

// NewMonitor creates an interrupt monitor fed by the given signal
// channel. Each received string names the trigger (for logging only).
func NewMonitor(speaker *Speaker, signals <-chan string, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		speaker:  speaker,
		signals:  signals,
		debounce: DefaultDebounce,
		logger:   slog.Default().With("component", "speech.monitor"),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run consumes signals until the context ends or the signal channel
// closes. Call it in its own goroutine.
func (m *Monitor) Run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			return
		case trigger, ok := <-m.signals:
			if !ok {
				return
			}
			m.handle(trigger)
		}
	}
}

// Done is closed when Run returns.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

func (m *Monitor) handle(trigger string) {
	if !m.speaker.IsSpeaking() {
		m.logger.Debug("interrupt signal while silent, ignoring", "trigger", trigger)
		return
	}

	m.mu.Lock()
	if time.Since(m.lastFired) < m.debounce {
		m.mu.Unlock()
		return
	}
	m.lastFired = time.Now()
	m.mu.Unlock()

	if m.speaker.RequestInterrupt() {
		m.logger.Info("interrupt fired", "trigger", trigger)
	}
}
