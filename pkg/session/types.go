package session

import "time"

// StepStatus describes the state of the step the cook is currently on.
type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in_progress"
	StatusCompleted  StepStatus = "completed"
	StatusPaused     StepStatus = "paused"
	StatusSkipped    StepStatus = "skipped"
)

// Action is one of the fixed set of session transitions.
type Action string

const (
	ActionPause          Action = "pause"
	ActionResume         Action = "resume"
	ActionNextStep       Action = "next_step"
	ActionRepeatStep     Action = "repeat_step"
	ActionGoBack         Action = "go_back"
	ActionCompleteRecipe Action = "complete_recipe"
	ActionNone           Action = "none"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionPause, ActionResume, ActionNextStep, ActionRepeatStep,
		ActionGoBack, ActionCompleteRecipe, ActionNone:
		return true
	}
	return false
}

// InterruptionKind tags why the cook was interrupted mid-recipe.
type InterruptionKind string

const (
	InterruptionPause        InterruptionKind = "pause"
	InterruptionQuestion     InterruptionKind = "question"
	InterruptionDisaster     InterruptionKind = "disaster"
	InterruptionSubstitution InterruptionKind = "substitution"
	InterruptionTimingIssue  InterruptionKind = "timing_issue"
)

// Valid reports whether k is a known interruption kind.
func (k InterruptionKind) Valid() bool {
	switch k {
	case InterruptionPause, InterruptionQuestion, InterruptionDisaster,
		InterruptionSubstitution, InterruptionTimingIssue:
		return true
	}
	return false
}

// Interruption is an audit entry describing a pause, question, disaster,
// substitution, or timing issue raised during a step. Records are never
// deleted; only the Resolved flag of a pause record flips when the cook
// resumes.
type Interruption struct {
	Kind        InterruptionKind `json:"type"`
	Reason      string           `json:"reason"`
	Timestamp   time.Time        `json:"timestamp"`
	StepIndex   int              `json:"step_number"`
	UserMessage string           `json:"user_message,omitempty"`
	Resolved    bool             `json:"resolved"`
}

// Utterance is one entry in the session's conversation transcript.
type Utterance struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
