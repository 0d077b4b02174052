package session_test

import (
	"testing"

	"github.com/foodingo/foodingo/pkg/session"
)

func TestNewSession(t *testing.T) {
	s := session.New("s1", "classic_beef_burger", 8)

	if s.CurrentStep != 0 {
		t.Errorf("expected step 0, got %d", s.CurrentStep)
	}
	if s.StepStatus != session.StatusPending {
		t.Errorf("expected pending, got %s", s.StepStatus)
	}
	if s.Finished() {
		t.Error("new session should not be finished")
	}
}

func TestNextStepProgression(t *testing.T) {
	s := session.New("s1", "classic_beef_burger", 8)

	// Seven advances walk step 0 through step 7, in progress each time.
	for i := 0; i < 7; i++ {
		out := s.Apply(session.ActionNextStep, nil)
		if !out.Advanced {
			t.Fatalf("advance %d: expected Advanced", i+1)
		}
		if s.CurrentStep != i+1 {
			t.Fatalf("advance %d: expected step %d, got %d", i+1, i+1, s.CurrentStep)
		}
		if s.StepStatus != session.StatusInProgress {
			t.Fatalf("advance %d: expected in_progress, got %s", i+1, s.StepStatus)
		}
	}

	// The eighth advance finishes the recipe.
	out := s.Apply(session.ActionNextStep, nil)
	if !out.Finished {
		t.Error("expected Finished on final advance")
	}
	if s.CurrentStep != 8 {
		t.Errorf("expected step 8, got %d", s.CurrentStep)
	}
	if s.StepStatus != session.StatusCompleted {
		t.Errorf("expected completed, got %s", s.StepStatus)
	}
	if !s.Finished() {
		t.Error("session should report finished")
	}
}

func TestNextStepSaturates(t *testing.T) {
	s := session.New("s1", "r", 2)

	prev := -1
	for i := 0; i < 5; i++ {
		s.Apply(session.ActionNextStep, nil)
		if s.CurrentStep < prev {
			t.Fatalf("current step decreased: %d -> %d", prev, s.CurrentStep)
		}
		prev = s.CurrentStep
	}
	if s.CurrentStep != 2 {
		t.Errorf("expected saturation at 2, got %d", s.CurrentStep)
	}
	if s.StepStatus != session.StatusCompleted {
		t.Errorf("expected completed after saturation, got %s", s.StepStatus)
	}
}

func TestGoBackThenNextRestores(t *testing.T) {
	s := session.New("s1", "r", 8)
	s.Apply(session.ActionNextStep, nil)
	s.Apply(session.ActionNextStep, nil)

	step := s.CurrentStep
	s.Apply(session.ActionGoBack, nil)
	if s.CurrentStep != step-1 {
		t.Fatalf("expected step %d after go_back, got %d", step-1, s.CurrentStep)
	}
	s.Apply(session.ActionNextStep, nil)

	if s.CurrentStep != step {
		t.Errorf("expected step %d restored, got %d", step, s.CurrentStep)
	}
	if s.StepStatus != session.StatusInProgress {
		t.Errorf("expected in_progress, got %s", s.StepStatus)
	}
}

func TestGoBackAtFirstStepIsNoOp(t *testing.T) {
	s := session.New("s1", "r", 8)

	out := s.Apply(session.ActionGoBack, nil)
	if s.CurrentStep != 0 {
		t.Errorf("expected step 0, got %d", s.CurrentStep)
	}
	if out.Message != "Already at the first step" {
		t.Errorf("expected informational message, got %q", out.Message)
	}
}

func TestPauseIsIdempotent(t *testing.T) {
	s := session.New("s1", "r", 8)
	s.Apply(session.ActionNextStep, nil)

	s.Apply(session.ActionPause, nil)
	s.Apply(session.ActionPause, nil)

	if s.StepStatus != session.StatusPaused {
		t.Errorf("expected paused, got %s", s.StepStatus)
	}

	unresolved := 0
	for _, rec := range s.Log {
		if rec.Kind == session.InterruptionPause && !rec.Resolved {
			unresolved++
		}
	}
	if unresolved != 1 {
		t.Errorf("expected exactly 1 unresolved pause record, got %d", unresolved)
	}
}

func TestResumeResolvesMostRecentPause(t *testing.T) {
	s := session.New("s1", "r", 8)

	// First pause/resume pair.
	s.Apply(session.ActionPause, nil)
	s.Apply(session.ActionResume, nil)

	// Second pause on a later step.
	s.Apply(session.ActionNextStep, nil)
	s.Apply(session.ActionPause, nil)
	s.Apply(session.ActionResume, nil)

	if s.StepStatus != session.StatusInProgress {
		t.Errorf("expected in_progress, got %s", s.StepStatus)
	}

	var pauses []session.Interruption
	for _, rec := range s.Log {
		if rec.Kind == session.InterruptionPause {
			pauses = append(pauses, rec)
		}
	}
	if len(pauses) != 2 {
		t.Fatalf("expected 2 pause records, got %d", len(pauses))
	}
	for i, rec := range pauses {
		if !rec.Resolved {
			t.Errorf("pause record %d should be resolved", i)
		}
	}
}

func TestResumeWithoutPauseIsNoOp(t *testing.T) {
	s := session.New("s1", "r", 8)
	s.Apply(session.ActionNextStep, nil)

	out := s.Apply(session.ActionResume, nil)
	if s.StepStatus != session.StatusInProgress {
		t.Errorf("expected in_progress, got %s", s.StepStatus)
	}
	if out.Message != "Nothing is paused" {
		t.Errorf("unexpected message %q", out.Message)
	}
}

func TestRepeatStepKeepsPosition(t *testing.T) {
	s := session.New("s1", "r", 8)
	s.Apply(session.ActionNextStep, nil)
	step := s.CurrentStep

	s.Apply(session.ActionRepeatStep, nil)
	if s.CurrentStep != step {
		t.Errorf("expected step unchanged at %d, got %d", step, s.CurrentStep)
	}
	if s.StepStatus != session.StatusInProgress {
		t.Errorf("expected in_progress, got %s", s.StepStatus)
	}
}

func TestDisasterPausesButNeverResolves(t *testing.T) {
	s := session.New("s1", "r", 8)
	s.Apply(session.ActionNextStep, nil)

	s.RecordInterruption(session.InterruptionDisaster, "Dropped the pan", "I dropped the pan")
	if s.StepStatus != session.StatusPaused {
		t.Fatalf("disaster should pause, got %s", s.StepStatus)
	}

	// An explicit pause opens a pause record alongside the disaster.
	s.Apply(session.ActionPause, nil)
	s.Apply(session.ActionResume, nil)

	var disasters, resolvedPauses int
	for _, rec := range s.Log {
		switch {
		case rec.Kind == session.InterruptionDisaster:
			disasters++
			if rec.Resolved {
				t.Error("disaster records must stay unresolved")
			}
		case rec.Kind == session.InterruptionPause && rec.Resolved:
			resolvedPauses++
		}
	}
	if disasters != 1 {
		t.Errorf("expected 1 disaster record, got %d", disasters)
	}
	if resolvedPauses != 1 {
		t.Errorf("expected 1 resolved pause record, got %d", resolvedPauses)
	}
}

func TestTimingIssuePauses(t *testing.T) {
	s := session.New("s1", "r", 8)
	s.Apply(session.ActionNextStep, nil)

	s.RecordInterruption(session.InterruptionTimingIssue, "Burgers cooking too fast", "")
	if s.StepStatus != session.StatusPaused {
		t.Errorf("timing issue should pause, got %s", s.StepStatus)
	}
}

func TestQuestionDoesNotPause(t *testing.T) {
	s := session.New("s1", "r", 8)
	s.Apply(session.ActionNextStep, nil)

	s.RecordInterruption(session.InterruptionQuestion, "Asked about substitutes", "")
	if s.StepStatus != session.StatusInProgress {
		t.Errorf("question should not pause, got %s", s.StepStatus)
	}
}

func TestContextUpdatesMergeBeforeAction(t *testing.T) {
	s := session.New("s1", "r", 8)
	s.Apply(session.ActionNextStep, map[string]any{"doneness": "medium"})
	s.Apply(session.ActionNone, map[string]any{"doneness": "well done", "cheese": true})

	if s.Context["doneness"] != "well done" {
		t.Errorf("expected context overwrite, got %v", s.Context["doneness"])
	}
	if s.Context["cheese"] != true {
		t.Errorf("expected cheese=true, got %v", s.Context["cheese"])
	}
}

func TestTranscriptBound(t *testing.T) {
	s := session.New("s1", "r", 8)
	s.SetTranscriptMax(4)

	for i := 0; i < 10; i++ {
		s.AppendTranscript("user", "next")
		s.AppendTranscript("assistant", "ok")
	}
	if len(s.Transcript) != 4 {
		t.Errorf("expected transcript bounded to 4, got %d", len(s.Transcript))
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := session.New("s1", "r", 8)
	s.Apply(session.ActionNextStep, map[string]any{"k": "v"})

	snap := s.Snapshot()
	snap.Context["k"] = "mutated"
	if s.Context["k"] != "v" {
		t.Error("snapshot mutation leaked into state")
	}
	if snap.StepCount != 8 {
		t.Errorf("expected step count 8, got %d", snap.StepCount)
	}
}
