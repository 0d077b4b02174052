// Package stt provides speech-to-text recognition. The capture loop
// depends only on the Recognizer interface, so the Whisper client and
// the test mock are interchangeable.
package stt

import (
	"context"
	"errors"
	"fmt"
)

// Recognizer transcribes captured audio into text.
type Recognizer interface {
	// Recognize transcribes PCM16 mono audio. An empty transcript with
	// a nil error means no speech was detected.
	Recognize(ctx context.Context, pcm []byte, sampleRate int) (string, error)

	// Close releases any resources held by the recognizer.
	Close() error
}

// Sentinel errors.
var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("stt: API key required")

	// ErrEmptyAudio is returned when no audio data is provided.
	ErrEmptyAudio = errors.New("stt: empty audio buffer")
)

// APIError represents an error response from a transcription API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stt: API error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}
