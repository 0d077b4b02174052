package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	elevenLabsWSBaseURL = "wss://api.elevenlabs.io/v1/text-to-speech"
	keepaliveInterval   = 30 * time.Second
	reconnectBaseDelay  = 1 * time.Second
	reconnectMaxDelay   = 30 * time.Second
)

// ElevenLabsWS streams synthesis over a persistent WebSocket. Keeping
// the connection warm cuts time-to-first-audio for step announcements,
// which matters when the user is standing at the stove waiting.
type ElevenLabsWS struct {
	config *Config
	logger *slog.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	connected bool

	// OnAudio receives each decoded PCM chunk as it arrives.
	OnAudio func(pcm []byte)

	// OnDisconnect is called when the connection drops.
	OnDisconnect func()

	// cbMu guards OnAudio/onFinal against the read loop.
	cbMu    sync.Mutex
	onFinal func()

	// synthMu serializes Synthesize calls; the socket carries one
	// generation at a time.
	synthMu sync.Mutex

	ctx          context.Context
	cancel       context.CancelFunc
	sendCh       chan string
	closeCh      chan struct{}
	closeOnce    sync.Once
	reconnecting bool
}

// NewElevenLabsWS creates a WebSocket streaming TTS provider.
func NewElevenLabsWS(opts ...Option) (*ElevenLabsWS, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelFlashV2_5
	cfg.Apply(opts...)

	if err := cfg.ValidateWithVoice(); err != nil {
		return nil, err
	}

	return &ElevenLabsWS{
		config:  cfg,
		logger:  cfg.Logger.With("component", "tts.elevenlabs_ws"),
		sendCh:  make(chan string, 64),
		closeCh: make(chan struct{}),
	}, nil
}

// Connect establishes the WebSocket connection and starts the
// background read, write and keepalive loops.
func (e *ElevenLabsWS) Connect(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	if err := e.dial(); err != nil {
		return err
	}

	go e.readLoop()
	go e.writeLoop()
	go e.keepaliveLoop()

	return nil
}

func (e *ElevenLabsWS) dial() error {
	e.connMu.Lock()
	defer e.connMu.Unlock()

	url := fmt.Sprintf("%s/%s/stream-input?model_id=%s&output_format=%s",
		elevenLabsWSBaseURL, e.config.VoiceID, e.config.ModelID, e.config.OutputFormat)

	headers := http.Header{}
	headers.Set("xi-api-key", e.config.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, resp, err := dialer.DialContext(e.ctx, url, headers)
	if err != nil {
		if resp != nil {
			return WrapError(providerElevenLabs, fmt.Errorf("websocket dial (status %d): %w", resp.StatusCode, err))
		}
		return WrapError(providerElevenLabs, fmt.Errorf("websocket dial: %w", err))
	}

	e.conn = conn
	e.connected = true

	// Begin-of-stream message. The leading space initializes the voice.
	bos := map[string]any{
		"text": " ",
		"voice_settings": map[string]any{
			"stability":        defaultStability,
			"similarity_boost": defaultSimilarityBoost,
		},
		"generation_config": map[string]any{
			"chunk_length_schedule": []int{120, 160, 250, 290},
		},
	}
	if err := conn.WriteJSON(bos); err != nil {
		conn.Close()
		return WrapError(providerElevenLabs, fmt.Errorf("send BOS: %w", err))
	}

	e.logger.Info("websocket connected", "voice", e.config.VoiceID, "model", e.config.ModelID)
	return nil
}

// SendText queues a text fragment for synthesis without blocking.
func (e *ElevenLabsWS) SendText(chunk string) error {
	if chunk == "" {
		return nil
	}

	select {
	case e.sendCh <- chunk:
		return nil
	case <-e.ctx.Done():
		return e.ctx.Err()
	default:
		e.logger.Warn("send channel full, dropping text chunk")
		return nil
	}
}

// Flush signals end of text so the server emits any buffered audio.
func (e *ElevenLabsWS) Flush() error {
	e.connMu.Lock()
	defer e.connMu.Unlock()

	if !e.connected || e.conn == nil {
		return ErrProviderUnavailable
	}

	return e.conn.WriteJSON(map[string]any{"text": ""})
}

func (e *ElevenLabsWS) readLoop() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.closeCh:
			return
		default:
		}

		e.connMu.Lock()
		conn := e.conn
		e.connMu.Unlock()

		if conn == nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				e.logger.Error("websocket read error", "error", err)
			}
			e.handleDisconnect()
			continue
		}

		var resp struct {
			Audio   string `json:"audio"`
			IsFinal bool   `json:"isFinal"`
		}
		if err := json.Unmarshal(message, &resp); err != nil {
			e.logger.Warn("failed to parse response", "error", err)
			continue
		}

		e.cbMu.Lock()
		onAudio, onFinal := e.OnAudio, e.onFinal
		e.cbMu.Unlock()

		if resp.Audio != "" && onAudio != nil {
			pcm, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				e.logger.Warn("failed to decode audio", "error", err)
				continue
			}
			onAudio(pcm)
		}
		if resp.IsFinal && onFinal != nil {
			onFinal()
		}
	}
}

func (e *ElevenLabsWS) writeLoop() {
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.closeCh:
			return
		case text := <-e.sendCh:
			e.connMu.Lock()
			conn := e.conn
			connected := e.connected
			e.connMu.Unlock()

			if !connected || conn == nil {
				continue
			}

			if err := conn.WriteJSON(map[string]any{"text": text}); err != nil {
				e.logger.Error("failed to send text", "error", err)
				e.handleDisconnect()
			}
		}
	}
}

func (e *ElevenLabsWS) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.closeCh:
			return
		case <-ticker.C:
			e.connMu.Lock()
			conn := e.conn
			connected := e.connected
			e.connMu.Unlock()

			if !connected || conn == nil {
				continue
			}

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				e.logger.Warn("keepalive ping failed", "error", err)
				e.handleDisconnect()
			}
		}
	}
}

func (e *ElevenLabsWS) handleDisconnect() {
	e.connMu.Lock()
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
	e.connected = false
	wasReconnecting := e.reconnecting
	e.reconnecting = true
	e.connMu.Unlock()

	if e.OnDisconnect != nil {
		e.OnDisconnect()
	}

	if !wasReconnecting {
		go e.reconnectLoop()
	}
}

func (e *ElevenLabsWS) reconnectLoop() {
	delay := reconnectBaseDelay

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.closeCh:
			return
		default:
		}

		e.logger.Info("attempting to reconnect", "delay", delay)
		time.Sleep(delay)

		if err := e.dial(); err != nil {
			e.logger.Error("reconnect failed", "error", err)
			delay *= 2
			if delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
			continue
		}

		e.connMu.Lock()
		e.reconnecting = false
		e.connMu.Unlock()
		e.logger.Info("reconnected successfully")
		return
	}
}

// Synthesize sends the whole text over the socket and collects audio
// until the server marks the generation final. This lets the warm
// streaming connection stand in for the HTTP provider in a Chain; when
// the socket is down it fails fast so the chain falls through.
func (e *ElevenLabsWS) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	e.synthMu.Lock()
	defer e.synthMu.Unlock()

	if !e.IsConnected() {
		return nil, WrapError(providerElevenLabs, ErrProviderUnavailable)
	}

	start := time.Now()

	var (
		mu    sync.Mutex
		audio []byte
	)
	done := make(chan struct{})
	var finalOnce sync.Once

	e.cbMu.Lock()
	e.OnAudio = func(pcm []byte) {
		mu.Lock()
		audio = append(audio, pcm...)
		mu.Unlock()
	}
	e.onFinal = func() {
		finalOnce.Do(func() { close(done) })
	}
	e.cbMu.Unlock()

	defer func() {
		e.cbMu.Lock()
		e.OnAudio, e.onFinal = nil, nil
		e.cbMu.Unlock()
	}()

	if err := e.SendText(text + " "); err != nil {
		return nil, WrapError(providerElevenLabs, err)
	}
	if err := e.Flush(); err != nil {
		return nil, WrapError(providerElevenLabs, err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
	}

	mu.Lock()
	defer mu.Unlock()
	if len(audio) == 0 {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("no audio before final marker"))
	}

	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   e.config.OutputFormat,
			SampleRate: SampleRateFromEncoding(e.config.OutputFormat),
			Channels:   1,
		},
		CharCount: len(text),
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Health reports whether the socket is currently usable.
func (e *ElevenLabsWS) Health(ctx context.Context) error {
	if !e.IsConnected() {
		return WrapError(providerElevenLabs, ErrProviderUnavailable)
	}
	return nil
}

// IsConnected reports whether the WebSocket is connected.
func (e *ElevenLabsWS) IsConnected() bool {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	return e.connected
}

// Close terminates the WebSocket connection.
func (e *ElevenLabsWS) Close() error {
	if e.cancel != nil {
		e.cancel()
	}

	e.closeOnce.Do(func() { close(e.closeCh) })

	e.connMu.Lock()
	defer e.connMu.Unlock()

	if e.conn != nil {
		e.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		e.conn.Close()
		e.conn = nil
	}
	e.connected = false

	return nil
}

// Verify ElevenLabsWS implements Provider at compile time.
var _ Provider = (*ElevenLabsWS)(nil)
