// Package assistant runs the voice interaction loop for one cooking
// session: announce the step, wait for the user, resolve their intent,
// apply it, and speak the result.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foodingo/foodingo/pkg/command"
	"github.com/foodingo/foodingo/pkg/listen"
	"github.com/foodingo/foodingo/pkg/recipe"
	"github.com/foodingo/foodingo/pkg/resolver"
	"github.com/foodingo/foodingo/pkg/session"
	"github.com/foodingo/foodingo/pkg/speech"
)

// DefaultTimeoutFloor is the minimum wait for user input per step.
const DefaultTimeoutFloor = 30 * time.Second

// Voice abstracts spoken output so tests can observe utterances.
type Voice interface {
	Speak(ctx context.Context, text string) (speech.Outcome, error)
}

// Event is a session progress notification for observers (the web
// hub, the CLI transcript).
type Event struct {
	SessionID string         `json:"session_id"`
	Kind      string         `json:"kind"` // "assistant_said", "user_said", "step_changed", "completed"
	Text      string         `json:"text,omitempty"`
	Step      int            `json:"step,omitempty"`
	Action    session.Action `json:"action,omitempty"`
}

// Assistant drives one cooking session to completion.
type Assistant struct {
	state    *session.State
	recipe   *recipe.Recipe
	resolver resolver.Resolver
	voice    Voice
	commands <-chan listen.Command
	typed    <-chan string
	logger   *slog.Logger

	timeoutFloor time.Duration
	onEvent      func(Event)
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithTimeoutFloor overrides the minimum per-step input timeout.
func WithTimeoutFloor(d time.Duration) Option {
	return func(a *Assistant) { a.timeoutFloor = d }
}

// WithTypedInput attaches a channel of typed commands, used alongside
// or instead of voice.
func WithTypedInput(ch <-chan string) Option {
	return func(a *Assistant) { a.typed = ch }
}

// WithEventFunc registers a progress observer.
func WithEventFunc(fn func(Event)) Option {
	return func(a *Assistant) { a.onEvent = fn }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) { a.logger = logger }
}

// New creates an assistant for one session. commands may be nil when
// running typed-only.
func New(state *session.State, rec *recipe.Recipe, res resolver.Resolver, voice Voice, commands <-chan listen.Command, opts ...Option) *Assistant {
	a := &Assistant{
		state:        state,
		recipe:       rec,
		resolver:     res,
		voice:        voice,
		commands:     commands,
		logger:       slog.Default().With("component", "assistant", "session_id", state.ID),
		timeoutFloor: DefaultTimeoutFloor,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run guides the user through the recipe until completion or context
// cancellation.
func (a *Assistant) Run(ctx context.Context) error {
	a.say(ctx, a.welcome())

	// The session opens on the first step.
	a.state.StepStatus = session.StatusInProgress
	a.announceStep(ctx)

	checkedIn := false
	stepStarted := time.Now()

	for {
		input, ok, err := a.waitForInput(ctx)
		if err != nil {
			return err
		}
		if !ok {
			// Timed out. Check in once, then fall back to occasional
			// progress reports on timed steps.
			if !checkedIn {
				a.say(ctx, "Still with me? Take your time, just say next when you're ready.")
				checkedIn = true
				continue
			}
			a.say(ctx, a.progressReport(time.Since(stepStarted)))
			continue
		}

		prevStep := a.state.CurrentStep
		finished, err := a.handleInput(ctx, input)
		if err != nil {
			return err
		}
		if finished {
			return nil
		}
		if a.state.CurrentStep != prevStep {
			stepStarted = time.Now()
			checkedIn = false
		}
	}
}

// HandleOnce processes a single utterance outside the voice loop, for
// transports that deliver input per request.
func (a *Assistant) HandleOnce(ctx context.Context, input string) (*resolver.Result, session.Outcome, error) {
	a.recordInterruptionIfAny(input)

	result, err := a.resolver.Resolve(ctx, input, a.state.Snapshot(), a.recipe)
	if err != nil {
		return nil, session.Outcome{}, err
	}

	outcome := a.state.Apply(result.Action, result.ContextUpdates)
	a.state.AppendTranscript("user", input)
	a.state.AppendTranscript("assistant", result.Response)

	a.emit(Event{SessionID: a.state.ID, Kind: "user_said", Text: input})
	a.emit(Event{SessionID: a.state.ID, Kind: "assistant_said", Text: result.Response, Action: result.Action})
	if outcome.Advanced {
		a.emit(Event{SessionID: a.state.ID, Kind: "step_changed", Step: a.state.CurrentStep})
	}

	return result, outcome, nil
}

func (a *Assistant) handleInput(ctx context.Context, input string) (bool, error) {
	a.logger.Info("handling input", "text", input)

	result, outcome, err := a.HandleOnce(ctx, input)
	if err != nil {
		return false, err
	}

	a.say(ctx, result.Response)

	if outcome.Finished {
		a.emit(Event{SessionID: a.state.ID, Kind: "completed"})
		a.say(ctx, a.completion())
		a.logger.Info("recipe completed", "steps", a.state.StepCount())
		return true, nil
	}

	// A changed or repeated step gets read out after the response.
	if outcome.Advanced || result.Action == session.ActionRepeatStep {
		a.announceStep(ctx)
	}

	return false, nil
}

// waitForInput blocks for the next voice or typed command, up to the
// step timeout. ok is false on timeout.
func (a *Assistant) waitForInput(ctx context.Context) (input string, ok bool, err error) {
	timer := time.NewTimer(a.stepTimeout())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", false, ctx.Err()

		case <-timer.C:
			a.logger.Debug("input timeout", "step", a.state.CurrentStep)
			return "", false, nil

		case cmd, open := <-a.commands:
			if !open {
				a.commands = nil
				if a.typed == nil {
					return "", false, fmt.Errorf("assistant: all input sources closed")
				}
				continue
			}
			return cmd.Text, true, nil

		case line, open := <-a.typed:
			if !open {
				a.typed = nil
				if a.commands == nil {
					return "", false, fmt.Errorf("assistant: all input sources closed")
				}
				continue
			}
			return line, true, nil
		}
	}
}

// stepTimeout scales the wait with the step's estimated duration so
// long steps (forming patties, resting meat) are not interrupted.
func (a *Assistant) stepTimeout() time.Duration {
	timeout := a.timeoutFloor
	if step := a.recipe.StepAt(a.state.CurrentStep); step != nil && step.EstimatedTime > 0 {
		if scaled := step.EstimatedTime / 4; scaled > timeout {
			timeout = scaled
		}
	}
	return timeout
}

// progressReport estimates time remaining on the current step. Steps
// without an estimate stay quiet.
func (a *Assistant) progressReport(elapsed time.Duration) string {
	step := a.recipe.StepAt(a.state.CurrentStep)
	if step == nil || step.EstimatedTime <= 0 {
		return ""
	}

	remaining := step.EstimatedTime - elapsed
	switch {
	case remaining <= 0:
		return "This step should be about done. Say next when you're ready."
	case remaining < time.Minute:
		return "Less than a minute to go on this step."
	default:
		minutes := int((remaining + time.Minute/2) / time.Minute)
		return fmt.Sprintf("About %d minutes left on this step. No rush.", minutes)
	}
}

// recordInterruptionIfAny logs emergencies before resolution so the
// interruption log captures them even if the resolver is degraded.
func (a *Assistant) recordInterruptionIfAny(input string) {
	if command.IsEmergency(input) {
		a.state.RecordInterruption(session.InterruptionDisaster, "User reported a kitchen emergency", input)
		a.logger.Warn("kitchen emergency recorded", "text", input)
	}
}

func (a *Assistant) announceStep(ctx context.Context) {
	intro := a.resolver.StepIntroduction(ctx, a.state.Snapshot(), a.recipe)
	a.emit(Event{SessionID: a.state.ID, Kind: "step_changed", Step: a.state.CurrentStep, Text: intro})
	a.say(ctx, intro)
}

func (a *Assistant) say(ctx context.Context, text string) {
	if text == "" {
		return
	}
	outcome, err := a.voice.Speak(ctx, text)
	if err != nil {
		a.logger.Warn("speech failed", "error", err)
		return
	}
	if outcome == speech.OutcomeInterrupted {
		a.logger.Debug("utterance interrupted")
	}
	a.emit(Event{SessionID: a.state.ID, Kind: "assistant_said", Text: text})
}

func (a *Assistant) emit(ev Event) {
	if a.onEvent != nil {
		a.onEvent(ev)
	}
}

func (a *Assistant) welcome() string {
	return fmt.Sprintf(
		"Welcome to Foodingo! Today we're making %s. It has %d steps and takes about %d minutes. Say start when you're ready, and tell me if anything goes wrong along the way.",
		a.recipe.Name, a.recipe.StepCount(), a.recipe.TotalTime())
}

func (a *Assistant) completion() string {
	return fmt.Sprintf("That's it, your %s is done! Great job cooking today.", a.recipe.Name)
}
