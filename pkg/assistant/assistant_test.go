package assistant

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foodingo/foodingo/pkg/recipe"
	"github.com/foodingo/foodingo/pkg/resolver"
	"github.com/foodingo/foodingo/pkg/session"
	"github.com/foodingo/foodingo/pkg/speech"
)

// recordingVoice captures utterances instead of playing them.
type recordingVoice struct {
	mu   sync.Mutex
	said []string
}

func (v *recordingVoice) Speak(ctx context.Context, text string) (speech.Outcome, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.said = append(v.said, text)
	return speech.OutcomeCompleted, nil
}

func (v *recordingVoice) transcript() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.said))
	copy(out, v.said)
	return out
}

func newFixture(results ...*resolver.Result) (*Assistant, *recordingVoice, chan string, *session.State, *recipe.Recipe) {
	rec := recipe.SampleRecipes()[0]
	state := session.New("test-session", rec.ID, rec.StepCount())
	voice := &recordingVoice{}
	typed := make(chan string)

	a := New(state, rec, resolver.NewMock(results...), voice, nil,
		WithTypedInput(typed),
		WithTimeoutFloor(time.Hour),
	)
	return a, voice, typed, state, rec
}

func TestRunWelcomesAndAnnouncesFirstStep(t *testing.T) {
	a, voice, typed, _, rec := newFixture()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	// Give the loop time to speak the opening lines, then stop it.
	deadline := time.After(2 * time.Second)
	for len(voice.transcript()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("transcript after deadline: %v", voice.transcript())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	close(typed)
	<-errCh

	said := voice.transcript()
	if !strings.Contains(said[0], rec.Name) {
		t.Errorf("welcome = %q, want recipe name", said[0])
	}
	if !strings.Contains(said[1], rec.Steps[0].Instruction) {
		t.Errorf("first announcement = %q, want step 1 instruction", said[1])
	}
}

func TestRunCompletesRecipe(t *testing.T) {
	rec := recipe.SampleRecipes()[0]

	// One next_step result per remaining transition.
	var results []*resolver.Result
	for i := 0; i < rec.StepCount(); i++ {
		results = append(results, &resolver.Result{
			Action:   session.ActionNextStep,
			Response: "Moving on.",
		})
	}

	a, voice, typed, state, _ := newFixture(results...)

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(context.Background()) }()

	for i := 0; i < rec.StepCount(); i++ {
		select {
		case typed <- "next":
		case <-time.After(2 * time.Second):
			t.Fatalf("assistant stopped accepting input at step %d", i)
		}
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not finish after final step")
	}

	if !state.Finished() {
		t.Errorf("session not finished: step %d status %s", state.CurrentStep, state.StepStatus)
	}

	said := voice.transcript()
	if !strings.Contains(said[len(said)-1], "done") {
		t.Errorf("last utterance = %q, want completion message", said[len(said)-1])
	}
}

func TestHandleOncePauseDoesNotAdvance(t *testing.T) {
	a, _, _, state, _ := newFixture(&resolver.Result{
		Action:   session.ActionPause,
		Response: "Take your time.",
	})
	state.StepStatus = session.StatusInProgress

	result, outcome, err := a.HandleOnce(context.Background(), "hold on a second")
	if err != nil {
		t.Fatalf("HandleOnce: %v", err)
	}
	if result.Action != session.ActionPause {
		t.Errorf("action = %s", result.Action)
	}
	if outcome.Advanced {
		t.Error("pause should not advance the step")
	}
	if state.StepStatus != session.StatusPaused {
		t.Errorf("status = %s, want paused", state.StepStatus)
	}
	if state.CurrentStep != 0 {
		t.Errorf("step = %d, want 0", state.CurrentStep)
	}
}

func TestHandleOnceRecordsEmergency(t *testing.T) {
	a, _, _, state, _ := newFixture(&resolver.Result{
		Action:   session.ActionPause,
		Response: "No worries, accidents happen!",
	})

	if _, _, err := a.HandleOnce(context.Background(), "I dropped the patty on the floor"); err != nil {
		t.Fatalf("HandleOnce: %v", err)
	}

	var found bool
	for _, rec := range state.Log {
		if rec.Kind == session.InterruptionDisaster && !rec.Resolved {
			found = true
		}
	}
	if !found {
		t.Error("disaster interruption should be recorded and unresolved")
	}
}

func TestHandleOnceAppendsTranscript(t *testing.T) {
	a, _, _, state, _ := newFixture(&resolver.Result{
		Action:   session.ActionNone,
		Response: "Happy to help!",
	})

	if _, _, err := a.HandleOnce(context.Background(), "any tips for flipping"); err != nil {
		t.Fatalf("HandleOnce: %v", err)
	}

	if len(state.Transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(state.Transcript))
	}
	if state.Transcript[0].Role != "user" || state.Transcript[1].Role != "assistant" {
		t.Errorf("transcript roles = %s, %s", state.Transcript[0].Role, state.Transcript[1].Role)
	}
}

func TestStepTimeoutScalesWithEstimate(t *testing.T) {
	rec := recipe.SampleRecipes()[0]
	state := session.New("test-session", rec.ID, rec.StepCount())

	a := New(state, rec, resolver.NewMock(), &recordingVoice{}, nil,
		WithTimeoutFloor(30*time.Second),
	)

	// Find a step whose estimate exceeds four times the floor, if the
	// sample recipe has one; otherwise the floor applies everywhere.
	for i := 0; i < rec.StepCount(); i++ {
		state.CurrentStep = i
		step := rec.StepAt(i)
		got := a.stepTimeout()

		want := 30 * time.Second
		if step.EstimatedTime/4 > want {
			want = step.EstimatedTime / 4
		}
		if got != want {
			t.Errorf("step %d timeout = %v, want %v", i+1, got, want)
		}
	}
}

func TestProgressReport(t *testing.T) {
	rec := &recipe.Recipe{
		ID: "timed",
		Steps: []recipe.Step{
			{Number: 1, Instruction: "simmer", EstimatedTime: 4 * time.Minute},
			{Number: 2, Instruction: "plate"},
		},
	}
	state := session.New("test-session", rec.ID, rec.StepCount())
	a := New(state, rec, resolver.NewMock(), &recordingVoice{}, nil)

	tests := []struct {
		name    string
		step    int
		elapsed time.Duration
		want    string
	}{
		{"minutes remaining", 0, time.Minute, "About 3 minutes"},
		{"under a minute", 0, 3*time.Minute + 30*time.Second, "Less than a minute"},
		{"past the estimate", 0, 5 * time.Minute, "about done"},
		{"no estimate stays quiet", 1, time.Minute, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state.CurrentStep = tt.step
			got := a.progressReport(tt.elapsed)
			if tt.want == "" {
				if got != "" {
					t.Errorf("progressReport = %q, want silence", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("progressReport = %q, want substring %q", got, tt.want)
			}
		})
	}
}

func TestEventsEmitted(t *testing.T) {
	rec := recipe.SampleRecipes()[0]
	state := session.New("test-session", rec.ID, rec.StepCount())

	var mu sync.Mutex
	var events []Event
	a := New(state, rec,
		resolver.NewMock(&resolver.Result{Action: session.ActionNextStep, Response: "Onward."}),
		&recordingVoice{}, nil,
		WithEventFunc(func(ev Event) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}),
	)

	if _, _, err := a.HandleOnce(context.Background(), "next"); err != nil {
		t.Fatalf("HandleOnce: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()

	kinds := map[string]bool{}
	for _, ev := range events {
		kinds[ev.Kind] = true
	}
	for _, want := range []string{"user_said", "assistant_said", "step_changed"} {
		if !kinds[want] {
			t.Errorf("missing event kind %q in %v", want, events)
		}
	}
}

func TestTypedInputReadsLines(t *testing.T) {
	in := NewTypedInput(strings.NewReader("next\n\n  pause  \n"))

	var got []string
	for line := range in.Lines() {
		got = append(got, line)
	}
	if len(got) != 2 || got[0] != "next" || got[1] != "pause" {
		t.Errorf("lines = %v", got)
	}
}
