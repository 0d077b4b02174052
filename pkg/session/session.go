// Package session implements the cooking session state machine: step
// position, step status, and the append-only interruption log.
//
// A State is mutated by exactly one writer at a time (the orchestrator
// or the Manager on behalf of a transport handler), so it carries no
// internal locking. All transitions are total: any action applied in
// any state leaves the session inside its invariants.
package session

import (
	"fmt"
	"time"
)

// DefaultTranscriptMax bounds the conversation transcript length.
const DefaultTranscriptMax = 40

// State holds the progress of one cooking attempt.
//
// Invariants: 0 <= CurrentStep <= stepCount, and CurrentStep ==
// stepCount implies StepStatus == completed. At most one unresolved
// pause interruption exists at any time.
type State struct {
	ID          string           `json:"session_id"`
	RecipeID    string           `json:"recipe_id"`
	UserID      string           `json:"user_id,omitempty"`
	CurrentStep int              `json:"current_step"`
	StepStatus  StepStatus       `json:"step_status"`
	StartedAt   time.Time        `json:"started_at"`
	Context     map[string]any   `json:"context"`
	Log         []Interruption   `json:"interruptions"`
	Transcript  []Utterance      `json:"conversation_history"`

	stepCount     int
	transcriptMax int
}

// New creates a session at step 0 with pending status.
func New(id, recipeID string, stepCount int) *State {
	return &State{
		ID:            id,
		RecipeID:      recipeID,
		CurrentStep:   0,
		StepStatus:    StatusPending,
		StartedAt:     time.Now(),
		Context:       make(map[string]any),
		stepCount:     stepCount,
		transcriptMax: DefaultTranscriptMax,
	}
}

// StepCount returns the number of steps in the session's recipe.
func (s *State) StepCount() int {
	return s.stepCount
}

// Finished reports whether the recipe has been completed.
func (s *State) Finished() bool {
	return s.CurrentStep >= s.stepCount && s.StepStatus == StatusCompleted
}

// Outcome describes the result of applying an action.
type Outcome struct {
	Action   Action `json:"action_executed"`
	Message  string `json:"message"`
	Advanced bool   `json:"advanced"` // moved to a new step
	Finished bool   `json:"finished"` // recipe reached completion
}

// Apply merges any context updates, then applies one action atomically.
// Unknown actions and ActionNone leave the state untouched.
func (s *State) Apply(action Action, updates map[string]any) Outcome {
	for k, v := range updates {
		s.Context[k] = v
	}

	switch action {
	case ActionPause:
		s.pause("User requested pause")
		return Outcome{Action: action, Message: "Cooking paused"}

	case ActionResume:
		if s.StepStatus != StatusPaused {
			return Outcome{Action: action, Message: "Nothing is paused"}
		}
		s.StepStatus = StatusInProgress
		s.resolveLatestPause()
		return Outcome{Action: action, Message: "Cooking resumed"}

	case ActionNextStep:
		return s.advance()

	case ActionRepeatStep:
		s.StepStatus = StatusInProgress
		return Outcome{Action: action, Message: "Repeating current step"}

	case ActionGoBack:
		if s.CurrentStep == 0 {
			return Outcome{Action: action, Message: "Already at the first step"}
		}
		s.CurrentStep--
		s.StepStatus = StatusInProgress
		return Outcome{Action: action, Message: fmt.Sprintf("Went back to step %d", s.CurrentStep+1), Advanced: true}

	case ActionCompleteRecipe:
		s.StepStatus = StatusCompleted
		return Outcome{Action: action, Message: "Recipe completed! Great job!", Finished: s.CurrentStep >= s.stepCount}

	default:
		return Outcome{Action: ActionNone, Message: ""}
	}
}

// advance moves to the next step, or finishes the recipe from the
// last one. Calling it again after completion is a no-op.
func (s *State) advance() Outcome {
	switch {
	case s.CurrentStep < s.stepCount-1:
		s.StepStatus = StatusCompleted
		s.CurrentStep++
		s.StepStatus = StatusInProgress
		return Outcome{
			Action:   ActionNextStep,
			Message:  fmt.Sprintf("Advanced to step %d", s.CurrentStep+1),
			Advanced: true,
		}
	case s.CurrentStep == s.stepCount-1:
		s.CurrentStep = s.stepCount
		s.StepStatus = StatusCompleted
		return Outcome{Action: ActionNextStep, Message: "Recipe completed!", Finished: true}
	default:
		// Already past the last step.
		s.StepStatus = StatusCompleted
		return Outcome{Action: ActionNextStep, Message: "Recipe already completed", Finished: true}
	}
}

// pause sets paused status and appends an unresolved pause record
// unless one is already open (pausing twice is idempotent).
func (s *State) pause(reason string) {
	s.StepStatus = StatusPaused
	if s.unresolvedPause() >= 0 {
		return
	}
	s.Log = append(s.Log, Interruption{
		Kind:      InterruptionPause,
		Reason:    reason,
		Timestamp: time.Now(),
		StepIndex: s.CurrentStep,
	})
}

// unresolvedPause returns the index of the most recent unresolved
// pause record, or -1.
func (s *State) unresolvedPause() int {
	for i := len(s.Log) - 1; i >= 0; i-- {
		if s.Log[i].Kind == InterruptionPause && !s.Log[i].Resolved {
			return i
		}
	}
	return -1
}

// resolveLatestPause marks the most recent unresolved pause record
// resolved. Disaster and timing records are deliberately never
// resolved here; only explicit pause/resume pairs match up.
func (s *State) resolveLatestPause() {
	if i := s.unresolvedPause(); i >= 0 {
		s.Log[i].Resolved = true
	}
}

// RecordInterruption appends an interruption of the given kind. A
// disaster or timing issue also pauses the current step.
func (s *State) RecordInterruption(kind InterruptionKind, reason, userMessage string) Interruption {
	rec := Interruption{
		Kind:        kind,
		Reason:      reason,
		Timestamp:   time.Now(),
		StepIndex:   s.CurrentStep,
		UserMessage: userMessage,
	}
	s.Log = append(s.Log, rec)

	if kind == InterruptionDisaster || kind == InterruptionTimingIssue {
		s.StepStatus = StatusPaused
	}
	return rec
}

// Unresolved returns all interruption records not yet resolved.
func (s *State) Unresolved() []Interruption {
	var out []Interruption
	for _, rec := range s.Log {
		if !rec.Resolved {
			out = append(out, rec)
		}
	}
	return out
}

// AppendTranscript adds a role-tagged utterance, trimming the oldest
// entries beyond the transcript bound.
func (s *State) AppendTranscript(role, content string) {
	s.Transcript = append(s.Transcript, Utterance{Role: role, Content: content})
	if max := s.transcriptMax; max > 0 && len(s.Transcript) > max {
		s.Transcript = s.Transcript[len(s.Transcript)-max:]
	}
}

// SetTranscriptMax overrides the transcript bound.
func (s *State) SetTranscriptMax(n int) {
	if n > 0 {
		s.transcriptMax = n
	}
}

// Snapshot is a read-only copy of the session state handed to the
// intent resolver and transport layer.
type Snapshot struct {
	ID          string         `json:"session_id"`
	RecipeID    string         `json:"recipe_id"`
	CurrentStep int            `json:"current_step"`
	StepCount   int            `json:"total_steps"`
	StepStatus  StepStatus     `json:"step_status"`
	Context     map[string]any `json:"context"`
	Unresolved  []Interruption `json:"active_interruptions"`
	Transcript  []Utterance    `json:"conversation_history"`
}

// Snapshot returns a copy safe to read after the state moves on.
func (s *State) Snapshot() Snapshot {
	ctx := make(map[string]any, len(s.Context))
	for k, v := range s.Context {
		ctx[k] = v
	}
	transcript := make([]Utterance, len(s.Transcript))
	copy(transcript, s.Transcript)

	return Snapshot{
		ID:          s.ID,
		RecipeID:    s.RecipeID,
		CurrentStep: s.CurrentStep,
		StepCount:   s.stepCount,
		StepStatus:  s.StepStatus,
		Context:     ctx,
		Unresolved:  s.Unresolved(),
		Transcript:  transcript,
	}
}
