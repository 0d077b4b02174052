package audioio

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	paInitOnce sync.Once
	paInitErr  error
)

// initPortAudio initializes the PortAudio runtime once per process.
func initPortAudio() error {
	paInitOnce.Do(func() {
		paInitErr = portaudio.Initialize()
	})
	return paInitErr
}

// PortAudioSource captures microphone audio via PortAudio.
type PortAudioSource struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	buf     []int16
	running bool
	closed  bool
}

// NewPortAudioSource opens the default input device.
func NewPortAudioSource(cfg Config, logger *slog.Logger) (*PortAudioSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := initPortAudio(); err != nil {
		return nil, err
	}

	s := &PortAudioSource{
		cfg:    cfg,
		logger: logger.With("component", "audioio.portaudio"),
		buf:    make([]int16, cfg.BufferSize()*cfg.Channels),
	}

	stream, err := portaudio.OpenDefaultStream(
		cfg.Channels, 0, float64(cfg.SampleRate), len(s.buf), s.buf)
	if err != nil {
		return nil, err
	}
	s.stream = stream

	return s, nil
}

// Start begins audio capture.
func (s *PortAudioSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return err
	}
	s.running = true
	s.logger.Info("audio capture started", "sample_rate", s.cfg.SampleRate)
	return nil
}

// Stop halts audio capture.
func (s *PortAudioSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	return s.stream.Stop()
}

// Read blocks until the next buffer of microphone audio is available.
func (s *PortAudioSource) Read(ctx context.Context) (AudioChunk, error) {
	s.mu.Lock()
	if !s.running || s.closed {
		s.mu.Unlock()
		return AudioChunk{}, io.EOF
	}
	stream := s.stream
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return AudioChunk{}, err
	}

	// stream.Read fills s.buf and blocks for one buffer duration, so
	// the capture loop gets a natural pacing tick.
	if err := stream.Read(); err != nil {
		return AudioChunk{}, err
	}

	samples := make([]int16, len(s.buf))
	copy(samples, s.buf)

	return AudioChunk{
		Samples:    samples,
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
	}, nil
}

// Config returns the audio configuration.
func (s *PortAudioSource) Config() Config { return s.cfg }

// Name returns "portaudio".
func (s *PortAudioSource) Name() string { return "portaudio" }

// Close releases the stream.
func (s *PortAudioSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.running {
		s.stream.Stop()
		s.running = false
	}
	return s.stream.Close()
}

var _ Source = (*PortAudioSource)(nil)

// PortAudioSink plays audio through the default output device.
type PortAudioSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	buf     []int16
	running bool
	closed  bool
}

// NewPortAudioSink opens the default output device.
func NewPortAudioSink(cfg Config, logger *slog.Logger) (*PortAudioSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := initPortAudio(); err != nil {
		return nil, err
	}

	s := &PortAudioSink{
		cfg:    cfg,
		logger: logger.With("component", "audioio.portaudio"),
		buf:    make([]int16, cfg.BufferSize()*cfg.Channels),
	}

	// Pass a pointer to the slice so Write can shrink it for the final
	// partial buffer of an utterance.
	stream, err := portaudio.OpenDefaultStream(
		0, cfg.Channels, float64(cfg.SampleRate), 0, &s.buf)
	if err != nil {
		return nil, err
	}
	s.stream = stream

	return s, nil
}

// Start begins audio playback.
func (s *PortAudioSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return err
	}
	s.running = true
	return nil
}

// Stop halts audio playback.
func (s *PortAudioSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	return s.stream.Stop()
}

// Write plays one chunk, blocking while the device drains it. Chunks
// larger than the device buffer are written in device-sized slices so
// an interrupt between Write calls takes effect quickly; the final
// slice keeps its real length instead of being padded with silence.
func (s *PortAudioSink) Write(ctx context.Context, chunk AudioChunk) error {
	s.mu.Lock()
	if !s.running || s.closed {
		s.mu.Unlock()
		return io.ErrClosedPipe
	}
	stream := s.stream
	s.mu.Unlock()

	full := s.buf[:cap(s.buf)]
	for _, part := range frameSlices(chunk.Samples, len(full)) {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.buf = full[:copy(full, part)]
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}

// frameSlices cuts samples into device-buffer-sized writes. The tail
// keeps its real length so no silence trails each utterance.
func frameSlices(samples []int16, size int) [][]int16 {
	var parts [][]int16
	for len(samples) > 0 {
		n := size
		if n > len(samples) {
			n = len(samples)
		}
		parts = append(parts, samples[:n])
		samples = samples[n:]
	}
	return parts
}

// Config returns the audio configuration.
func (s *PortAudioSink) Config() Config { return s.cfg }

// Name returns "portaudio".
func (s *PortAudioSink) Name() string { return "portaudio" }

// Close releases the stream.
func (s *PortAudioSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.running {
		s.stream.Stop()
		s.running = false
	}
	return s.stream.Close()
}

var _ Sink = (*PortAudioSink)(nil)
