// Package app wires the full voice cooking assistant: audio capture
// and playback, speech recognition, intent resolution, and the session
// loop. The cmd binaries stay thin; everything they compose lives here.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/foodingo/foodingo/internal/config"
	"github.com/foodingo/foodingo/pkg/assistant"
	"github.com/foodingo/foodingo/pkg/audioio"
	"github.com/foodingo/foodingo/pkg/command"
	"github.com/foodingo/foodingo/pkg/listen"
	"github.com/foodingo/foodingo/pkg/recipe"
	"github.com/foodingo/foodingo/pkg/resolver"
	"github.com/foodingo/foodingo/pkg/session"
	"github.com/foodingo/foodingo/pkg/speech"
	"github.com/foodingo/foodingo/pkg/stt"
	"github.com/foodingo/foodingo/pkg/tts"
)

// recentWindow is how many recent utterances the duplicate filter
// remembers.
const recentWindow = 8

// Config selects what the assistant runs with. Zero values fall back
// to offline, typed-only operation.
type Config struct {
	// RecipeID is the recipe to cook. Defaults to the sample burger.
	RecipeID string

	// TypedOnly disables the microphone and speaker entirely.
	TypedOnly bool

	// AudioBackend picks the capture/playback implementation.
	AudioBackend audioio.Backend

	// Env carries keys, paths, and tuning loaded from the environment.
	Env *config.Config

	Logger *slog.Logger
}

// DefaultConfig returns a config for the sample recipe with real audio.
func DefaultConfig() Config {
	return Config{
		RecipeID:     "classic_beef_burger",
		AudioBackend: audioio.BackendPortAudio,
	}
}

// App is the assembled voice assistant.
type App struct {
	cfg    Config
	logger *slog.Logger

	recipes  recipe.Provider
	resolver resolver.Resolver
	sessions *session.Manager

	gate       *audioio.Gate
	source     audioio.Source
	sink       audioio.Sink
	synth      tts.Provider
	stream     *tts.ElevenLabsWS
	speaker    *speech.Speaker
	recognizer stt.Recognizer
	filter     *command.Filter
	monitor    *speech.Monitor

	interrupts  chan string
	captureDone chan struct{}
	closers     []func() error
}

// New validates the config and creates an unassembled App. Call Init
// before Run.
func New(cfg Config) (*App, error) {
	if cfg.Env == nil {
		return nil, fmt.Errorf("app: environment config required")
	}
	if cfg.RecipeID == "" {
		cfg.RecipeID = DefaultConfig().RecipeID
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	sessions := session.NewManager(cfg.Logger)
	sessions.SetTranscriptMax(cfg.Env.TranscriptMax)

	return &App{
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "app"),
		sessions: sessions,
	}, nil
}

// Init builds every collaborator: catalog, resolver, and (unless typed
// only) the audio pipeline. Missing API keys degrade capability by
// capability instead of failing startup.
func (a *App) Init() error {
	a.recipes = a.openCatalog()
	a.resolver = a.buildResolver()
	a.closers = append(a.closers, a.resolver.Close)

	if a.cfg.TypedOnly {
		a.speaker = speech.NewSpeaker(nil, nil, audioio.NewGate(), speech.WithLogger(a.cfg.Logger))
		a.logger.Info("running typed-only, no audio pipeline")
		return nil
	}

	if a.cfg.Env.OpenAIKey == "" {
		// Whisper is the only recognizer, so no key means no microphone.
		a.cfg.TypedOnly = true
		a.speaker = speech.NewSpeaker(nil, nil, audioio.NewGate(), speech.WithLogger(a.cfg.Logger))
		a.logger.Warn("OPENAI_API_KEY not set, falling back to typed input")
		return nil
	}

	if err := a.buildAudioPipeline(); err != nil {
		return err
	}
	return nil
}

// openCatalog opens the SQLite catalog, or falls back to the in-memory
// sample set when the database cannot be opened.
func (a *App) openCatalog() recipe.Provider {
	cat, err := recipe.NewSQLite(a.cfg.Env.DBPath)
	if err != nil {
		a.logger.Warn("recipe database unavailable, using built-in recipes", "path", a.cfg.Env.DBPath, "error", err)
		return recipe.NewMemoryCatalog()
	}
	a.closers = append(a.closers, cat.Close)
	return cat
}

// buildResolver prefers the OpenAI resolver and falls back to keyword
// rules for offline runs.
func (a *App) buildResolver() resolver.Resolver {
	if a.cfg.Env.OpenAIKey == "" {
		a.logger.Info("no OpenAI key, using keyword rules resolver")
		return resolver.NewRules()
	}
	res, err := resolver.NewOpenAI(a.cfg.Env.OpenAIKey,
		resolver.WithModel(a.cfg.Env.ResolverModel),
		resolver.WithTimeout(a.cfg.Env.ResolverTimeout),
		resolver.WithLogger(a.cfg.Logger),
	)
	if err != nil {
		a.logger.Warn("OpenAI resolver unavailable, using keyword rules", "error", err)
		return resolver.NewRules()
	}
	return res
}

func (a *App) buildAudioPipeline() error {
	a.gate = audioio.NewGate()

	// Capture at 16kHz for Whisper; play back at the synthesis rate.
	captureCfg := audioio.DefaultConfig()
	captureCfg.Backend = a.cfg.AudioBackend

	playbackCfg := captureCfg
	playbackCfg.SampleRate = tts.SampleRateFromEncoding(tts.EncodingPCM24)

	source, err := audioio.NewSource(captureCfg, a.cfg.Logger)
	if err != nil {
		return fmt.Errorf("open audio source: %w", err)
	}
	a.source = source
	a.closers = append(a.closers, source.Close)

	sink, err := audioio.NewSink(playbackCfg, a.cfg.Logger)
	if err != nil {
		return fmt.Errorf("open audio sink: %w", err)
	}
	a.sink = sink
	a.closers = append(a.closers, sink.Close)

	synth, err := a.buildSynthesizer()
	if err != nil {
		return err
	}
	a.synth = synth
	a.closers = append(a.closers, synth.Close)

	a.speaker = speech.NewSpeaker(synth, sink, a.gate,
		speech.WithSettleDelay(a.cfg.Env.SettleDelay),
		speech.WithLogger(a.cfg.Logger),
	)

	recognizer, err := stt.NewWhisper(a.cfg.Env.OpenAIKey, stt.WithLogger(a.cfg.Logger))
	if err != nil {
		return fmt.Errorf("create recognizer: %w", err)
	}
	a.recognizer = recognizer
	a.closers = append(a.closers, recognizer.Close)

	a.filter = command.NewFilter(a.cfg.Env.WakePhrase, recentWindow)

	a.interrupts = make(chan string, 4)
	a.monitor = speech.NewMonitor(a.speaker, a.interrupts,
		speech.WithMonitorLogger(a.cfg.Logger))

	return nil
}

// buildSynthesizer chains the warm ElevenLabs socket first, then the
// ElevenLabs HTTP provider, then OpenAI TTS, so a dead socket or a
// quota failure on one provider does not silence the assistant.
func (a *App) buildSynthesizer() (tts.Provider, error) {
	var providers []tts.Provider

	if key := a.cfg.Env.ElevenLabsKey; key != "" {
		voice := tts.ResolveVoice(a.cfg.Env.ElevenLabsVoice)

		stream, err := tts.NewElevenLabsWS(
			tts.WithAPIKey(key),
			tts.WithVoice(voice),
			tts.WithOutputFormat(tts.EncodingPCM24),
			tts.WithLogger(a.cfg.Logger),
		)
		if err != nil {
			a.logger.Warn("ElevenLabs streaming unavailable", "error", err)
		} else {
			a.stream = stream
			a.closers = append(a.closers, stream.Close)
			providers = append(providers, stream)
		}

		el, err := tts.NewElevenLabs(
			tts.WithAPIKey(key),
			tts.WithVoice(voice),
			tts.WithOutputFormat(tts.EncodingPCM24),
			tts.WithLogger(a.cfg.Logger),
		)
		if err != nil {
			a.logger.Warn("ElevenLabs unavailable", "error", err)
		} else {
			providers = append(providers, el)
		}
	}

	oa, err := tts.NewOpenAI(
		tts.WithAPIKey(a.cfg.Env.OpenAIKey),
		tts.WithOutputFormat(tts.EncodingPCM24),
		tts.WithLogger(a.cfg.Logger),
	)
	if err != nil {
		a.logger.Warn("OpenAI TTS unavailable", "error", err)
	} else {
		providers = append(providers, oa)
	}

	return tts.NewChainWithLogger(a.cfg.Logger, providers...)
}

// Run cooks one recipe end to end and returns when the recipe is done
// or the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	rec, err := a.recipes.Get(a.cfg.RecipeID)
	if err != nil {
		return fmt.Errorf("load recipe %q: %w", a.cfg.RecipeID, err)
	}

	state := a.sessions.Start(rec.ID, rec.StepCount(), "")
	defer a.sessions.End(state.ID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.sink != nil {
		if err := a.sink.Start(ctx); err != nil {
			return fmt.Errorf("start audio sink: %w", err)
		}
		defer a.sink.Stop()
	}

	// Warm the streaming socket. Failure is fine, the chain falls
	// through to the HTTP providers.
	if a.stream != nil {
		if err := a.stream.Connect(ctx); err != nil {
			a.logger.Warn("streaming synthesis unavailable", "error", err)
		}
	}

	var commands <-chan listen.Command
	if a.recognizer != nil {
		go a.monitor.Run(ctx)
		commands = a.superviseCapture(ctx)
	}

	typed := assistant.NewTypedInput(os.Stdin)

	asst := assistant.New(state, rec, a.resolver, a.speaker, commands,
		assistant.WithTypedInput(typed.Lines()),
		assistant.WithTimeoutFloor(a.cfg.Env.CommandFloor),
		assistant.WithLogger(a.cfg.Logger),
	)

	runErr := asst.Run(ctx)

	// Stop the capture task and join it before returning, so the
	// deferred closers never tear down a device another goroutine is
	// still reading.
	cancel()
	if a.captureDone != nil {
		<-a.captureDone
	}
	return runErr
}

// superviseCapture keeps a capture loop alive for the life of the
// session. If the loop dies (device hiccup, source EOF) it is rebuilt
// after a short pause rather than leaving the assistant deaf.
// captureDone closes once the supervisor and its listener have fully
// exited; Run waits on it before releasing the audio device.
func (a *App) superviseCapture(ctx context.Context) <-chan listen.Command {
	out := make(chan listen.Command, 8)
	a.captureDone = make(chan struct{})
	go func() {
		defer close(a.captureDone)
		defer close(out)
		for {
			l := listen.New(a.source, a.recognizer, a.filter, a.gate, a.speaker.IsSpeaking,
				listen.WithLogger(a.cfg.Logger))
			go l.Run(ctx)

			a.forwardCommands(ctx, l, out)
			<-l.Done()

			if ctx.Err() != nil {
				return
			}
			a.logger.Warn("capture loop stopped, restarting")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}()
	return out
}

// forwardCommands relays accepted utterances to the assistant and
// mirrors barge-in words to the interrupt monitor so playback stops
// before the command is handled. Returns when the listener's channel
// closes or the context ends.
func (a *App) forwardCommands(ctx context.Context, l *listen.Listener, out chan<- listen.Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-l.Commands():
			if !ok {
				return
			}
			if command.IsInterrupt(cmd.Text) || command.IsEmergency(cmd.Text) {
				select {
				case a.interrupts <- cmd.Text:
				default:
				}
			}
			select {
			case out <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Shutdown releases every resource Init acquired, in reverse order.
func (a *App) Shutdown() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("shutdown error", "error", err)
		}
	}
}
