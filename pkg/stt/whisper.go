package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/foodingo/foodingo/internal/httpc"
)

const whisperURL = "https://api.openai.com/v1/audio/transcriptions"

// Whisper transcribes audio via the OpenAI Whisper API.
type Whisper struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// WhisperOption configures the Whisper recognizer.
type WhisperOption func(*Whisper)

// WithModel overrides the default whisper-1 model.
func WithModel(model string) WhisperOption {
	return func(w *Whisper) { w.model = model }
}

// WithBaseURL overrides the default API URL.
func WithBaseURL(url string) WhisperOption {
	return func(w *Whisper) { w.baseURL = url }
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) WhisperOption {
	return func(w *Whisper) { w.client.Timeout = timeout }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) WhisperOption {
	return func(w *Whisper) { w.logger = logger }
}

// NewWhisper creates a Whisper recognizer.
func NewWhisper(apiKey string, opts ...WhisperOption) (*Whisper, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	w := &Whisper{
		apiKey:  apiKey,
		model:   "whisper-1",
		baseURL: whisperURL,
		client:  httpc.NewClient(30 * time.Second),
		logger:  slog.Default().With("component", "stt.whisper"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Recognize wraps the PCM buffer in a WAV container and uploads it for
// transcription. Returns the trimmed transcript text.
func (w *Whisper) Recognize(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if len(pcm) == 0 {
		return "", ErrEmptyAudio
	}

	start := time.Now()

	wavData, err := EncodeWAV(pcm, sampleRate)
	if err != nil {
		return "", fmt.Errorf("stt: encode wav: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("stt: create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return "", fmt.Errorf("stt: write form file: %w", err)
	}
	if err := mw.WriteField("model", w.model); err != nil {
		return "", fmt.Errorf("stt: write model field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("stt: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL, &body)
	if err != nil {
		return "", fmt.Errorf("stt: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", w.parseError(resp)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("stt: decode response: %w", err)
	}

	text := strings.TrimSpace(result.Text)

	w.logger.Debug("transcribed audio",
		"bytes", len(pcm),
		"chars", len(text),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return text, nil
}

// Close releases resources.
func (w *Whisper) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

func (w *Whisper) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

// Verify Whisper implements Recognizer at compile time.
var _ Recognizer = (*Whisper)(nil)
