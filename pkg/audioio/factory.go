package audioio

import (
	"fmt"
	"log/slog"
)

// NewSource creates an audio source for the configured backend.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	switch cfg.Backend {
	case BackendPortAudio, "":
		return NewPortAudioSource(cfg, logger)
	case BackendMock:
		return NewMockSource(cfg, logger), nil
	default:
		return nil, fmt.Errorf("audioio: unknown backend %q", cfg.Backend)
	}
}

// NewSink creates an audio sink for the configured backend.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	switch cfg.Backend {
	case BackendPortAudio, "":
		return NewPortAudioSink(cfg, logger)
	case BackendMock:
		return NewMockSink(cfg, logger), nil
	default:
		return nil, fmt.Errorf("audioio: unknown backend %q", cfg.Backend)
	}
}
