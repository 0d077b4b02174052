package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/foodingo/foodingo/pkg/recipe"
	"github.com/foodingo/foodingo/pkg/session"
)

// Rules is a keyword-driven resolver that needs no network. It runs
// demo sessions offline and serves as the fallback when the OpenAI
// resolver is unavailable.
type Rules struct{}

// NewRules creates the keyword resolver.
func NewRules() *Rules {
	return &Rules{}
}

// rule maps trigger substrings to an action and canned response.
type rule struct {
	triggers []string
	action   session.Action
	response string
}

var rules = []rule{
	{
		triggers: []string{"start", "begin"},
		action:   session.ActionNextStep,
		response: "Perfect! Let's start cooking. Get everything ready!",
	},
	{
		triggers: []string{"next", "done", "finished"},
		action:   session.ActionNextStep,
		response: "Great job! Moving to the next step.",
	},
	{
		triggers: []string{"pause", "wait", "hold on"},
		action:   session.ActionPause,
		response: "No problem! I'll pause here. Take your time, and let me know when you're ready to continue.",
	},
	{
		triggers: []string{"resume", "continue", "ready"},
		action:   session.ActionResume,
		response: "Welcome back! Let's continue where we left off.",
	},
	{
		triggers: []string{"repeat", "again", "what was that"},
		action:   session.ActionRepeatStep,
		response: "Sure! Let me repeat the current step for you.",
	},
	{
		triggers: []string{"back", "previous"},
		action:   session.ActionGoBack,
		response: "Alright, let's go back to the previous step.",
	},
	{
		triggers: []string{"dropped", "fell", "disaster", "spill", "mess"},
		action:   session.ActionPause,
		response: "Oh no! Kitchen accidents happen to everyone. No worries at all! Do you need to start this step over, or can you continue?",
	},
	{
		triggers: []string{"help", "stuck"},
		action:   session.ActionNone,
		response: "I'm here to help! What's going on? Are you having trouble with the current step?",
	},
}

// Resolve matches the utterance against the keyword table. Unknown
// input becomes a gentle no-op prompt.
func (r *Rules) Resolve(ctx context.Context, input string, snap session.Snapshot, rec *recipe.Recipe) (*Result, error) {
	lower := strings.ToLower(input)

	for _, rule := range rules {
		for _, trigger := range rule.triggers {
			if strings.Contains(lower, trigger) {
				return &Result{Action: rule.action, Response: rule.response}, nil
			}
		}
	}

	return &Result{
		Action:   session.ActionNone,
		Response: "I understand! Let me know if you need help, want to continue, or need to pause.",
	}, nil
}

// StepIntroduction reads out the step instruction with its number.
func (r *Rules) StepIntroduction(ctx context.Context, snap session.Snapshot, rec *recipe.Recipe) string {
	step := rec.StepAt(snap.CurrentStep)
	if step == nil {
		return "We've completed all the steps! Great job cooking!"
	}

	intro := fmt.Sprintf("Step %d of %d: %s", snap.CurrentStep+1, snap.StepCount, step.Instruction)
	if step.EstimatedTime > 0 {
		minutes := int(step.EstimatedTime.Minutes())
		if minutes > 0 {
			intro += fmt.Sprintf(" This should take about %d minutes.", minutes)
		}
	}
	if len(step.Tips) > 0 {
		intro += " Tip: " + step.Tips[0]
	}
	return intro
}

// Close is a no-op.
func (r *Rules) Close() error { return nil }

// Verify Rules implements Resolver at compile time.
var _ Resolver = (*Rules)(nil)
