// Package speech coordinates spoken output with microphone capture.
// The Speaker owns the half-duplex contract: while it plays audio the
// capture gate is suspended, and capture only resumes after a settle
// delay that lets the room go quiet.
package speech

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/foodingo/foodingo/pkg/audioio"
	"github.com/foodingo/foodingo/pkg/tts"
)

// Outcome reports how an utterance ended.
type Outcome string

const (
	// OutcomeCompleted means the full utterance was played.
	OutcomeCompleted Outcome = "completed"

	// OutcomeInterrupted means playback stopped early on user request.
	OutcomeInterrupted Outcome = "interrupted"
)

// DefaultSettleDelay is how long the microphone stays gated after
// playback so the tail of the assistant's voice is not transcribed.
const DefaultSettleDelay = 1500 * time.Millisecond

// Speaker plays synthesized speech while holding the capture gate.
type Speaker struct {
	provider    tts.Provider
	sink        audioio.Sink
	gate        *audioio.Gate
	settleDelay time.Duration
	logger      *slog.Logger

	mu          sync.Mutex
	speaking    bool
	interrupted bool
}

// SpeakerOption configures a Speaker.
type SpeakerOption func(*Speaker)

// WithSettleDelay overrides the post-playback settle delay.
func WithSettleDelay(d time.Duration) SpeakerOption {
	return func(s *Speaker) { s.settleDelay = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) SpeakerOption {
	return func(s *Speaker) { s.logger = logger }
}

// NewSpeaker creates a speech output controller. The sink may be nil
// when no audio device is available, in which case utterances are
// logged as text and reported as completed.
func NewSpeaker(provider tts.Provider, sink audioio.Sink, gate *audioio.Gate, opts ...SpeakerOption) *Speaker {
	s := &Speaker{
		provider:    provider,
		sink:        sink,
		gate:        gate,
		settleDelay: DefaultSettleDelay,
		logger:      slog.Default().With("component", "speech.speaker"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Speak synthesizes and plays text. Capture is gated for the whole
// utterance plus the settle delay. Playback checks for interruption
// between chunks, so RequestInterrupt stops output within one chunk.
func (s *Speaker) Speak(ctx context.Context, text string) (Outcome, error) {
	if text == "" {
		return OutcomeCompleted, nil
	}

	// No audio device. Surface the text and keep the conversation going.
	if s.sink == nil {
		s.logger.Info("assistant says", "text", text)
		return OutcomeCompleted, nil
	}

	if err := s.gate.Suspend(ctx); err != nil {
		return OutcomeCompleted, err
	}
	defer s.resumeAfterSettle(ctx)

	s.beginUtterance()
	defer s.endUtterance()

	result, err := s.provider.Synthesize(ctx, text)
	if err != nil {
		s.logger.Error("synthesis failed, falling back to text", "error", err)
		s.logger.Info("assistant says", "text", text)
		return OutcomeCompleted, nil
	}

	outcome, err := s.play(ctx, result)
	if err != nil {
		return outcome, err
	}

	s.logger.Debug("utterance finished",
		"outcome", string(outcome),
		"chars", result.CharCount,
		"audio_ms", result.Duration().Milliseconds(),
	)
	return outcome, nil
}

// play streams the synthesized buffer to the sink chunk by chunk.
func (s *Speaker) play(ctx context.Context, result *tts.AudioResult) (Outcome, error) {
	cfg := s.sink.Config()
	chunkBytes := cfg.BufferBytes()
	if chunkBytes <= 0 {
		chunkBytes = 3200
	}

	audio := result.Audio
	for offset := 0; offset < len(audio); offset += chunkBytes {
		if s.wasInterrupted() {
			return OutcomeInterrupted, nil
		}
		if err := ctx.Err(); err != nil {
			return OutcomeInterrupted, err
		}

		end := offset + chunkBytes
		if end > len(audio) {
			end = len(audio)
		}

		var chunk audioio.AudioChunk
		chunk.FromBytes(audio[offset:end], result.Format.SampleRate, result.Format.Channels)

		if err := s.sink.Write(ctx, chunk); err != nil {
			return OutcomeInterrupted, err
		}
	}

	if s.wasInterrupted() {
		return OutcomeInterrupted, nil
	}
	return OutcomeCompleted, nil
}

// RequestInterrupt asks the current utterance to stop. Calling it more
// than once per utterance, or while nothing is playing, is a no-op.
func (s *Speaker) RequestInterrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.speaking || s.interrupted {
		return false
	}
	s.interrupted = true
	s.logger.Info("speech interrupted by user")
	return true
}

// IsSpeaking reports whether an utterance is currently playing.
func (s *Speaker) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

func (s *Speaker) beginUtterance() {
	s.mu.Lock()
	s.speaking = true
	s.interrupted = false
	s.mu.Unlock()
}

func (s *Speaker) endUtterance() {
	s.mu.Lock()
	s.speaking = false
	s.mu.Unlock()
}

func (s *Speaker) wasInterrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupted
}

// resumeAfterSettle waits out the settle delay before re-enabling
// capture. The delay is skipped if the context is gone.
func (s *Speaker) resumeAfterSettle(ctx context.Context) {
	if s.settleDelay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(s.settleDelay):
		}
	}
	s.gate.Resume()
}
