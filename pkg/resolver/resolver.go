// Package resolver turns user utterances into cooking actions. The
// OpenAI resolver uses function calling for intent extraction; the
// rule resolver is a keyword fallback that needs no network.
package resolver

import (
	"context"

	"github.com/foodingo/foodingo/pkg/recipe"
	"github.com/foodingo/foodingo/pkg/session"
)

// Result is a resolved intent: the action to apply, the spoken
// response, and any updates to the session context.
type Result struct {
	Action         session.Action `json:"action"`
	Response       string         `json:"response"`
	ContextUpdates map[string]any `json:"context_updates,omitempty"`
}

// Resolver maps an utterance plus cooking context to a Result.
type Resolver interface {
	// Resolve interprets user input against the current session state.
	// Implementations degrade gracefully: on provider failure they
	// return an apologetic no-op Result rather than an error, so the
	// cooking session keeps moving.
	Resolve(ctx context.Context, input string, snap session.Snapshot, rec *recipe.Recipe) (*Result, error)

	// StepIntroduction produces a short spoken lead-in for the
	// session's current step.
	StepIntroduction(ctx context.Context, snap session.Snapshot, rec *recipe.Recipe) string

	// Close releases any resources.
	Close() error
}

// fallbackResult is the graceful-degradation response used when a
// provider cannot produce an answer.
func fallbackResult() *Result {
	return &Result{
		Action:   session.ActionNone,
		Response: "I'm sorry, I had trouble understanding that. Could you try again?",
	}
}
