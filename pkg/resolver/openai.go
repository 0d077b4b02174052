package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foodingo/foodingo/internal/httpc"
	"github.com/foodingo/foodingo/pkg/recipe"
	"github.com/foodingo/foodingo/pkg/session"
)

const (
	chatCompletionsURL = "https://api.openai.com/v1/chat/completions"
	defaultModel       = "gpt-4o-mini"

	historyWindow = 5
)

// OpenAI resolves intents via the chat completions API with a single
// cooking_action function the model is asked to call.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// OpenAIOption configures the OpenAI resolver.
type OpenAIOption func(*OpenAI)

// WithModel overrides the default model.
func WithModel(model string) OpenAIOption {
	return func(o *OpenAI) { o.model = model }
}

// WithBaseURL overrides the API URL.
func WithBaseURL(url string) OpenAIOption {
	return func(o *OpenAI) { o.baseURL = url }
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) OpenAIOption {
	return func(o *OpenAI) { o.client.Timeout = timeout }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) OpenAIOption {
	return func(o *OpenAI) { o.logger = logger }
}

// NewOpenAI creates an OpenAI-backed intent resolver.
func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resolver: API key required")
	}

	o := &OpenAI{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: chatCompletionsURL,
		client:  httpc.NewClient(15 * time.Second),
		logger:  slog.Default().With("component", "resolver.openai"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Resolve interprets the utterance with full cooking context. Provider
// failures degrade to an apologetic no-op so the session keeps going.
func (o *OpenAI) Resolve(ctx context.Context, input string, snap session.Snapshot, rec *recipe.Recipe) (*Result, error) {
	messages := []chatMessage{
		{Role: "system", Content: o.systemPrompt(snap, rec)},
	}

	// Recent history gives the model conversational continuity.
	transcript := snap.Transcript
	if len(transcript) > historyWindow {
		transcript = transcript[len(transcript)-historyWindow:]
	}
	for _, u := range transcript {
		messages = append(messages, chatMessage{Role: u.Role, Content: u.Content})
	}

	messages = append(messages, chatMessage{
		Role:    "user",
		Content: fmt.Sprintf("Context: %s\n\nUser says: %s", o.buildContext(snap, rec), input),
	})

	payload := map[string]any{
		"model":       o.model,
		"messages":    messages,
		"temperature": 0.7,
		"max_tokens":  300,
		"tools": []map[string]any{{
			"type": "function",
			"function": map[string]any{
				"name":        "cooking_action",
				"description": "Take a cooking-related action",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"action": map[string]any{
							"type": "string",
							"enum": []string{"pause", "resume", "next_step", "repeat_step", "go_back", "complete_recipe", "none"},
						},
						"response": map[string]any{
							"type":        "string",
							"description": "The conversational response to the user",
						},
						"context_updates": map[string]any{
							"type":        "object",
							"description": "Updates to the cooking session context",
						},
					},
					"required": []string{"action", "response"},
				},
			},
		}},
		"tool_choice": "auto",
	}

	resp, err := o.complete(ctx, payload)
	if err != nil {
		o.logger.Error("resolve failed, degrading to no-op", "error", err)
		return fallbackResult(), nil
	}

	return o.parseResult(resp), nil
}

// StepIntroduction asks the model for a short friendly lead-in to the
// current step, falling back to the bare instruction on any failure.
func (o *OpenAI) StepIntroduction(ctx context.Context, snap session.Snapshot, rec *recipe.Recipe) string {
	step := rec.StepAt(snap.CurrentStep)
	if step == nil {
		return "We've completed all the steps! Great job cooking!"
	}

	fallback := fmt.Sprintf("Step %d: %s", snap.CurrentStep+1, step.Instruction)

	var sb strings.Builder
	fmt.Fprintf(&sb, "We're on step %d of %d for %s.\n", snap.CurrentStep+1, snap.StepCount, rec.Name)
	fmt.Fprintf(&sb, "Current step: %s\n", step.Instruction)
	if step.EstimatedTime > 0 {
		fmt.Fprintf(&sb, "This should take about %d minutes.\n", int(step.EstimatedTime.Minutes()))
	}
	if len(step.Tips) > 0 {
		fmt.Fprintf(&sb, "Tips: %s\n", strings.Join(step.Tips, ", "))
	}

	payload := map[string]any{
		"model": o.model,
		"messages": []chatMessage{
			{Role: "system", Content: "You are a cooking assistant. Introduce the next step in a friendly, encouraging way. Keep it concise but helpful."},
			{Role: "user", Content: sb.String()},
		},
		"temperature": 0.7,
		"max_tokens":  150,
	}

	resp, err := o.complete(ctx, payload)
	if err != nil {
		o.logger.Warn("step introduction failed, using instruction", "error", err)
		return fallback
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return fallback
	}
	return resp.Choices[0].Message.Content
}

// Close releases resources.
func (o *OpenAI) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

func (o *OpenAI) complete(ctx context.Context, payload map[string]any) (*chatResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(raw)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, msg)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}
	return &parsed, nil
}

// parseResult extracts the cooking_action call, falling back to the
// plain message content with no action.
func (o *OpenAI) parseResult(resp *chatResponse) *Result {
	msg := resp.Choices[0].Message

	for _, tc := range msg.ToolCalls {
		if tc.Function.Name != "cooking_action" {
			continue
		}
		var args struct {
			Action         string         `json:"action"`
			Response       string         `json:"response"`
			ContextUpdates map[string]any `json:"context_updates"`
		}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			o.logger.Warn("malformed tool arguments", "error", err)
			continue
		}
		action := session.Action(args.Action)
		if !action.Valid() {
			action = session.ActionNone
		}
		return &Result{
			Action:         action,
			Response:       args.Response,
			ContextUpdates: args.ContextUpdates,
		}
	}

	return &Result{Action: session.ActionNone, Response: msg.Content}
}

func (o *OpenAI) systemPrompt(snap session.Snapshot, rec *recipe.Recipe) string {
	return fmt.Sprintf(`You are an AI cooking assistant helping someone cook %s.

Your personality:
- Friendly, encouraging, and patient
- Understand that cooking is messy and unpredictable
- Handle interruptions gracefully
- Adapt to the user's pace
- Provide helpful tips and encouragement

Key behaviors:
1. ALWAYS be supportive when things go wrong (spills, burns, dropped food)
2. Pause intelligently when the user needs time
3. Provide context when resuming after interruptions
4. Give clear, actionable guidance
5. Don't rush the user - let them work at their own pace
6. Offer alternatives when ingredients are missing or things go wrong

Current cooking context:
- Recipe: %s
- Step %d of %d
- Status: %s

Use the cooking_action function to:
- "pause": When user needs to stop/handle something
- "resume": When user is ready to continue
- "next_step": When current step is complete
- "repeat_step": When user wants to hear instructions again
- "go_back": When user wants to return to previous step
- "complete_recipe": When all steps are done
- "none": For general conversation/questions

Always provide a warm, conversational response along with any action.`,
		rec.Name, rec.Name, snap.CurrentStep+1, snap.StepCount, snap.StepStatus)
}

// buildContext summarizes the cooking state for the model.
func (o *OpenAI) buildContext(snap session.Snapshot, rec *recipe.Recipe) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Recipe: %s", rec.Name))
	parts = append(parts, fmt.Sprintf("Total steps: %d", snap.StepCount))
	parts = append(parts, fmt.Sprintf("Current step: %d", snap.CurrentStep+1))
	parts = append(parts, fmt.Sprintf("Step status: %s", snap.StepStatus))

	if step := rec.StepAt(snap.CurrentStep); step != nil {
		parts = append(parts, fmt.Sprintf("Current instruction: %s", step.Instruction))
		if step.EstimatedTime > 0 {
			parts = append(parts, fmt.Sprintf("Estimated time: %d seconds", int(step.EstimatedTime.Seconds())))
		}
	}

	if len(snap.Unresolved) > 0 {
		parts = append(parts, "Active interruptions:")
		active := snap.Unresolved
		if len(active) > 3 {
			active = active[len(active)-3:]
		}
		for _, rec := range active {
			parts = append(parts, fmt.Sprintf("- %s: %s", rec.Kind, rec.Reason))
		}
	}

	if len(snap.Context) > 0 {
		parts = append(parts, "Session context:")
		for k, v := range snap.Context {
			parts = append(parts, fmt.Sprintf("- %s: %v", k, v))
		}
	}

	return strings.Join(parts, "\n")
}

// Verify OpenAI implements Resolver at compile time.
var _ Resolver = (*OpenAI)(nil)
