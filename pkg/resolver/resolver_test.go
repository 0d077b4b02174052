package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/foodingo/foodingo/pkg/recipe"
	"github.com/foodingo/foodingo/pkg/session"
)

func testRecipe() *recipe.Recipe {
	return recipe.SampleRecipes()[0]
}

func testSnapshot(rec *recipe.Recipe) session.Snapshot {
	s := session.New("test-session", rec.ID, rec.StepCount())
	s.Apply(session.ActionNextStep, nil)
	return s.Snapshot()
}

func TestRulesKeywordMatching(t *testing.T) {
	r := NewRules()
	rec := testRecipe()
	snap := testSnapshot(rec)

	tests := []struct {
		input  string
		action session.Action
	}{
		{"let's start cooking", session.ActionNextStep},
		{"okay I'm done with this", session.ActionNextStep},
		{"pause for a second", session.ActionPause},
		{"hold on a moment", session.ActionPause},
		{"I'm ready to continue", session.ActionResume},
		{"can you repeat that", session.ActionRepeatStep},
		{"go back please", session.ActionGoBack},
		{"I dropped the patty", session.ActionPause},
		{"I'm stuck", session.ActionNone},
		{"lovely weather today", session.ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := r.Resolve(context.Background(), tt.input, snap, rec)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if result.Action != tt.action {
				t.Errorf("action = %s, want %s", result.Action, tt.action)
			}
			if result.Response == "" {
				t.Error("response should never be empty")
			}
		})
	}
}

func TestRulesStepIntroduction(t *testing.T) {
	r := NewRules()
	rec := testRecipe()
	snap := testSnapshot(rec)

	intro := r.StepIntroduction(context.Background(), snap, rec)
	if !strings.Contains(intro, "Step") {
		t.Errorf("intro = %q, want step number", intro)
	}

	step := rec.StepAt(snap.CurrentStep)
	if step == nil {
		t.Fatal("test recipe has no current step")
	}
	if !strings.Contains(intro, step.Instruction) {
		t.Errorf("intro should contain the instruction, got %q", intro)
	}
}

func TestRulesIntroductionAfterCompletion(t *testing.T) {
	r := NewRules()
	rec := testRecipe()

	s := session.New("test-session", rec.ID, rec.StepCount())
	for i := 0; i <= rec.StepCount(); i++ {
		s.Apply(session.ActionNextStep, nil)
	}

	intro := r.StepIntroduction(context.Background(), s.Snapshot(), rec)
	if !strings.Contains(intro, "completed") {
		t.Errorf("intro = %q, want completion message", intro)
	}
}

func TestOpenAIResolveToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"choices": [{
				"message": {
					"content": "",
					"tool_calls": [{
						"function": {
							"name": "cooking_action",
							"arguments": "{\"action\":\"next_step\",\"response\":\"Great, moving on!\",\"context_updates\":{\"doneness\":\"medium\"}}"
						}
					}]
				}
			}]
		}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer o.Close()

	rec := testRecipe()
	result, err := o.Resolve(context.Background(), "I'm done with this step", testSnapshot(rec), rec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Action != session.ActionNextStep {
		t.Errorf("action = %s, want next_step", result.Action)
	}
	if result.Response != "Great, moving on!" {
		t.Errorf("response = %q", result.Response)
	}
	if result.ContextUpdates["doneness"] != "medium" {
		t.Errorf("context updates = %v", result.ContextUpdates)
	}
}

func TestOpenAIResolvePlainMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"Medium-rare is about 57 degrees."}}]}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer o.Close()

	rec := testRecipe()
	result, err := o.Resolve(context.Background(), "what temperature is medium rare", testSnapshot(rec), rec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Action != session.ActionNone {
		t.Errorf("action = %s, want none for plain answers", result.Action)
	}
	if result.Response == "" {
		t.Error("response should carry the message content")
	}
}

func TestOpenAIResolveDegradesGracefully(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer o.Close()

	rec := testRecipe()
	result, err := o.Resolve(context.Background(), "next", testSnapshot(rec), rec)
	if err != nil {
		t.Fatalf("Resolve should not error on provider failure: %v", err)
	}
	if result.Action != session.ActionNone {
		t.Errorf("action = %s, want none on degradation", result.Action)
	}
	if !strings.Contains(result.Response, "sorry") {
		t.Errorf("response = %q, want apology", result.Response)
	}
}

func TestOpenAIInvalidActionBecomesNone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"choices": [{
				"message": {
					"tool_calls": [{
						"function": {
							"name": "cooking_action",
							"arguments": "{\"action\":\"levitate\",\"response\":\"ok\"}"
						}
					}]
				}
			}]
		}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer o.Close()

	rec := testRecipe()
	result, err := o.Resolve(context.Background(), "do something weird", testSnapshot(rec), rec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result.Action != session.ActionNone {
		t.Errorf("unknown action should normalize to none, got %s", result.Action)
	}
}

func TestOpenAIStepIntroductionFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	o, err := NewOpenAI("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer o.Close()

	rec := testRecipe()
	snap := testSnapshot(rec)
	intro := o.StepIntroduction(context.Background(), snap, rec)

	step := rec.StepAt(snap.CurrentStep)
	if !strings.Contains(intro, step.Instruction) {
		t.Errorf("fallback intro = %q, want bare instruction", intro)
	}
}

func TestMockReplaysResults(t *testing.T) {
	m := NewMock(
		&Result{Action: session.ActionNextStep, Response: "on we go"},
	)
	rec := testRecipe()
	snap := testSnapshot(rec)

	first, _ := m.Resolve(context.Background(), "next", snap, rec)
	if first.Action != session.ActionNextStep {
		t.Errorf("first action = %s", first.Action)
	}

	second, _ := m.Resolve(context.Background(), "hmm", snap, rec)
	if second.Action != session.ActionNone {
		t.Errorf("exhausted mock should return none, got %s", second.Action)
	}

	if got := m.Inputs(); len(got) != 2 || got[0] != "next" {
		t.Errorf("inputs = %v", got)
	}
}
