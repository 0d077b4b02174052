package tts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestConfigValidation(t *testing.T) {
	t.Run("missing API key", func(t *testing.T) {
		cfg := DefaultConfig()
		if err := cfg.Validate(); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("missing voice ID", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Apply(WithAPIKey("key"))
		if err := cfg.ValidateWithVoice(); !errors.Is(err, ErrNoVoiceID) {
			t.Errorf("expected ErrNoVoiceID, got %v", err)
		}
	})

	t.Run("complete config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Apply(WithAPIKey("key"), WithVoice("voice"))
		if err := cfg.ValidateWithVoice(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestAudioResultDuration(t *testing.T) {
	r := &AudioResult{
		// One second of 24kHz mono PCM16.
		Audio:  make([]byte, 48000),
		Format: AudioFormat{Encoding: EncodingPCM24, SampleRate: 24000, Channels: 1, BitDepth: 16},
	}

	if got := r.Duration(); got != time.Second {
		t.Errorf("Duration() = %v, want 1s", got)
	}
}

func TestAPIErrorRetryable(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{400, false},
		{401, false},
		{404, false},
	}
	for _, tt := range tests {
		err := &APIError{StatusCode: tt.status, Provider: "test"}
		if got := err.IsRetryable(); got != tt.retryable {
			t.Errorf("status %d: IsRetryable() = %v, want %v", tt.status, got, tt.retryable)
		}
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	wrapped := WrapError("test", ErrProviderUnavailable)
	if !errors.Is(wrapped, ErrProviderUnavailable) {
		t.Error("wrapped error should match sentinel via errors.Is")
	}
	if WrapError("test", nil) != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestChainFallback(t *testing.T) {
	failing := WithError(errors.New("provider down"))
	working := NewMock()

	chain, err := NewChain(failing, working)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	result, err := chain.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.CharCount != 5 {
		t.Errorf("CharCount = %d, want 5", result.CharCount)
	}
	if working.CallCount("Synthesize") != 1 {
		t.Errorf("fallback provider called %d times, want 1", working.CallCount("Synthesize"))
	}
}

func TestChainAllFail(t *testing.T) {
	chain, err := NewChain(
		WithError(errors.New("first down")),
		WithError(errors.New("second down")),
	)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	_, err = chain.Synthesize(context.Background(), "hello")
	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected ChainError, got %T", err)
	}
	if len(chainErr.Errors) != 2 {
		t.Errorf("recorded %d errors, want 2", len(chainErr.Errors))
	}
}

func TestChainRequiresProvider(t *testing.T) {
	if _, err := NewChain(); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	audio := make([]byte, 4800)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write(audio)
	}))
	defer srv.Close()

	p, err := NewElevenLabs(
		WithAPIKey("test-key"),
		WithVoice("test-voice"),
		WithBaseURL(srv.URL),
	)
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	defer p.Close()

	result, err := p.Synthesize(context.Background(), "hello kitchen")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(result.Audio) != len(audio) {
		t.Errorf("audio length = %d, want %d", len(result.Audio), len(audio))
	}
	if result.Format.SampleRate != 24000 {
		t.Errorf("sample rate = %d, want 24000", result.Format.SampleRate)
	}
}

func TestElevenLabsErrorParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"message":"invalid api key","status":"unauthorized"}}`))
	}))
	defer srv.Close()

	p, err := NewElevenLabs(
		WithAPIKey("bad-key"),
		WithVoice("test-voice"),
		WithBaseURL(srv.URL),
	)
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	defer p.Close()

	_, err = p.Synthesize(context.Background(), "hello")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", apiErr.StatusCode)
	}
	if apiErr.Message != "invalid api key" {
		t.Errorf("message = %q, want parsed detail message", apiErr.Message)
	}
}

func TestOpenAISynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	p, err := NewOpenAI(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer p.Close()

	result, err := p.Synthesize(context.Background(), "preheat the pan")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.Format.Encoding != EncodingMP3 {
		t.Errorf("encoding = %s, want mp3", result.Format.Encoding)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	p, err := NewElevenLabs(
		WithAPIKey("test-key"),
		WithVoice("test-voice"),
		WithBaseURL(srv.URL),
		WithRetry(3, time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}
	defer p.Close()

	if _, err := p.Synthesize(context.Background(), "hello"); err != nil {
		t.Fatalf("Synthesize after retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestResolveVoice(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty uses default", "", Voices[DefaultVoice]},
		{"preset name", "josh", "TxGEqnHWrfWFTfGW9XjX"},
		{"raw ID passes through", "21m00Tcm4TlvDq8ikWAM", "21m00Tcm4TlvDq8ikWAM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveVoice(tt.in); got != tt.want {
				t.Errorf("ResolveVoice(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMockTracking(t *testing.T) {
	m := NewMock()

	m.Synthesize(context.Background(), "first")
	m.Synthesize(context.Background(), "second")
	m.Health(context.Background())

	if m.CallCount("Synthesize") != 2 {
		t.Errorf("Synthesize count = %d, want 2", m.CallCount("Synthesize"))
	}
	if last := m.LastCall(); last == nil || last.Method != "Health" {
		t.Errorf("LastCall = %+v, want Health", last)
	}

	m.Reset()
	if len(m.Calls()) != 0 {
		t.Error("Reset should clear recorded calls")
	}
}
