// Package listen runs the microphone capture loop: read a buffer of
// audio, transcribe it, filter out noise and echo, and hand accepted
// commands to the assistant.
package listen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/foodingo/foodingo/pkg/audioio"
	"github.com/foodingo/foodingo/pkg/command"
	"github.com/foodingo/foodingo/pkg/stt"
)

const (
	// captureWindow is how much audio is accumulated before each
	// recognition call. Short enough to feel responsive, long enough
	// for Whisper to have context.
	captureWindow = 3 * time.Second

	// backoffBase is the initial delay after a recognition service
	// failure. Doubles per consecutive failure up to backoffMax.
	backoffBase = 500 * time.Millisecond
	backoffMax  = 8 * time.Second
)

// Command is an accepted user utterance.
type Command struct {
	Text string
	At   time.Time
}

// Listener captures audio and emits filtered commands.
type Listener struct {
	source     audioio.Source
	recognizer stt.Recognizer
	filter     *command.Filter
	gate       *audioio.Gate
	speaking   func() bool
	logger     *slog.Logger

	window time.Duration
	out    chan Command
	done   chan struct{}
}

// Option configures a Listener.
type Option func(*Listener)

// WithWindow overrides the capture window.
func WithWindow(d time.Duration) Option {
	return func(l *Listener) { l.window = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) { l.logger = logger }
}

// New creates a capture loop. The speaking callback lets the filter
// apply its stricter rules while the assistant is talking.
func New(source audioio.Source, recognizer stt.Recognizer, filter *command.Filter, gate *audioio.Gate, speaking func() bool, opts ...Option) *Listener {
	if speaking == nil {
		speaking = func() bool { return false }
	}
	l := &Listener{
		source:     source,
		recognizer: recognizer,
		filter:     filter,
		gate:       gate,
		speaking:   speaking,
		logger:     slog.Default().With("component", "listen"),
		window:     captureWindow,
		out:        make(chan Command, 8),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Commands returns the channel of accepted commands. It is closed
// when the loop exits.
func (l *Listener) Commands() <-chan Command {
	return l.out
}

// Done is closed when the loop has fully exited.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Run captures until the context is cancelled or the source ends.
// Call it in its own goroutine; wait on Done to join.
func (l *Listener) Run(ctx context.Context) {
	defer close(l.done)
	defer close(l.out)

	if err := l.source.Start(ctx); err != nil {
		l.logger.Error("failed to start audio source", "error", err)
		return
	}
	defer l.source.Stop()

	var backoff time.Duration

	for {
		if err := ctx.Err(); err != nil {
			return
		}

		// While the assistant speaks the gate is closed; poll gently
		// rather than pile up microphone reads.
		if !l.gate.Enter() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		stop := l.captureAndRecognize(ctx, &backoff)
		l.gate.Exit()
		if stop {
			return
		}
	}
}

// captureAndRecognize runs one capture window inside the gate's
// critical section. Returns true when the loop should stop.
func (l *Listener) captureAndRecognize(ctx context.Context, backoff *time.Duration) bool {
	pcm, sampleRate, stop := l.captureWindowAudio(ctx)
	if stop {
		return true
	}
	if len(pcm) == 0 {
		return false
	}

	text, err := l.recognizer.Recognize(ctx, pcm, sampleRate)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return true
		}
		// Service failure. Log and back off so a dead API does not
		// spin the loop.
		*backoff = nextBackoff(*backoff)
		l.logger.Warn("recognition service failure", "error", err, "backoff", *backoff)
		select {
		case <-ctx.Done():
			return true
		case <-time.After(*backoff):
		}
		return false
	}
	*backoff = 0

	if text == "" {
		// No speech in the window. Expected most of the time.
		return false
	}

	verdict := l.filter.Classify(text, l.speaking())
	switch verdict {
	case command.Valid:
		l.logger.Info("command accepted", "text", text)
		select {
		case l.out <- Command{Text: text, At: time.Now()}:
		case <-ctx.Done():
			return true
		}
	case command.Duplicate:
		l.logger.Debug("duplicate utterance suppressed", "text", text)
	default:
		l.logger.Debug("utterance filtered", "text", text, "verdict", verdict.String())
	}
	return false
}

// captureWindowAudio accumulates one window of PCM from the source.
func (l *Listener) captureWindowAudio(ctx context.Context) (pcm []byte, sampleRate int, stop bool) {
	cfg := l.source.Config()
	sampleRate = cfg.SampleRate

	deadline := time.Now().Add(l.window)
	for time.Now().Before(deadline) {
		chunk, err := l.source.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				l.logger.Info("audio source ended")
				return nil, sampleRate, true
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, sampleRate, true
			}
			l.logger.Warn("audio read failed", "error", err)
			return nil, sampleRate, false
		}
		pcm = append(pcm, chunk.Bytes()...)

		// Bail out early if the gate got suspended mid-window so the
		// speaker is not kept waiting for the whole window.
		if !l.gate.Enabled() {
			break
		}
	}
	return pcm, sampleRate, false
}

func nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return backoffBase
	}
	next := current * 2
	if next > backoffMax {
		return backoffMax
	}
	return next
}
