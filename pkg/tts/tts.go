// Package tts provides a unified interface for text-to-speech
// providers. The assistant only depends on the Provider interface, so
// OpenAI, ElevenLabs, and the test mock are interchangeable.
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the time to first byte in milliseconds.
	LatencyMs int64
}

// Duration estimates playback time from the PCM payload size.
func (r *AudioResult) Duration() time.Duration {
	if r.Format.SampleRate == 0 || r.Format.BitDepth == 0 {
		return 0
	}
	bytesPerSec := r.Format.SampleRate * r.Format.Channels * r.Format.BitDepth / 8
	if bytesPerSec == 0 {
		return 0
	}
	return time.Duration(float64(len(r.Audio)) / float64(bytesPerSec) * float64(time.Second))
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int // Hz
	Channels   int // 1 mono, 2 stereo
	BitDepth   int // e.g. 16 for PCM16
}

// Encoding represents audio encoding types.
type Encoding string

const (
	EncodingPCM16 Encoding = "pcm_16000" // 16kHz mono PCM16
	EncodingPCM24 Encoding = "pcm_24000" // 24kHz mono PCM16
	EncodingMP3   Encoding = "mp3_44100_128"
)

// SampleRateFromEncoding extracts the sample rate from an encoding.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM24:
		return 24000
	case EncodingMP3:
		return 44100
	default:
		return 24000
	}
}
