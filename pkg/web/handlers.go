package web

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/foodingo/foodingo/pkg/recipe"
	"github.com/foodingo/foodingo/pkg/session"
)

type startCookingRequest struct {
	RecipeID string `json:"recipe_id"`
	UserID   string `json:"user_id"`
}

type userInputRequest struct {
	SessionID string `json:"session_id"`
	RecipeID  string `json:"recipe_id"`
	UserInput string `json:"user_input"`
}

type interruptionRequest struct {
	SessionID        string `json:"session_id"`
	InterruptionType string `json:"interruption_type"`
	Reason           string `json:"reason"`
	UserMessage      string `json:"user_message"`
}

// handleRoot is the health check endpoint.
func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Foodingo AI Cooking Assistant is running!"})
}

// handleListRecipes lists all available recipes.
func (s *Server) handleListRecipes(c *fiber.Ctx) error {
	all, err := s.recipes.List()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load recipes")
	}

	summaries := make([]recipe.Summary, 0, len(all))
	for _, r := range all {
		summaries = append(summaries, r.Summarize())
	}
	return c.JSON(fiber.Map{"recipes": summaries})
}

// handleGetRecipe returns one full recipe.
func (s *Server) handleGetRecipe(c *fiber.Ctx) error {
	r, err := s.recipes.Get(c.Params("recipe_id"))
	if err != nil {
		if errors.Is(err, recipe.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Recipe not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load recipe")
	}
	return c.JSON(r)
}

// handleStartCooking creates a new cooking session.
func (s *Server) handleStartCooking(c *fiber.Ctx) error {
	var req startCookingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	r, err := s.recipes.Get(req.RecipeID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Recipe not found")
	}

	state := s.sessions.Start(r.ID, r.StepCount(), req.UserID)

	welcome := fmt.Sprintf(
		"Great! Let's cook %s together. This recipe serves %d and should take about %d minutes total. Before we start, make sure you have all your ingredients ready. When you're ready to begin, just say \"Let's start\" or \"Begin cooking\"!",
		r.Name, r.Servings, r.TotalTime())

	s.logger.Info("cooking session started", "session_id", state.ID, "recipe_id", r.ID)

	return c.JSON(fiber.Map{
		"session_id": state.ID,
		"recipe": fiber.Map{
			"id":                   r.ID,
			"name":                 r.Name,
			"description":          r.Description,
			"total_steps":          r.StepCount(),
			"estimated_total_time": r.TotalTime(),
		},
		"welcome_message": welcome,
		"status":          "ready_to_start",
	})
}

// handleUserInput resolves and applies one utterance.
func (s *Server) handleUserInput(c *fiber.Ctx) error {
	var req userInputRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := s.processUserInput(c.UserContext(), req.SessionID, req.RecipeID, req.UserInput)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// processUserInput is shared between the REST endpoint and the
// websocket. It resolves intent, applies the action, and broadcasts
// the update to session watchers.
func (s *Server) processUserInput(ctx context.Context, sessionID, recipeID, input string) (fiber.Map, error) {
	r, err := s.recipes.Get(recipeID)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Recipe not found")
	}

	snap, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Session not found")
	}

	resolved, err := s.resolver.Resolve(ctx, input, snap, r)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadGateway, "failed to interpret input")
	}

	outcome, after, err := s.sessions.Apply(sessionID, resolved.Action, resolved.ContextUpdates)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Session not found")
	}

	s.sessions.Transcribe(sessionID, "user", input)
	s.sessions.Transcribe(sessionID, "assistant", resolved.Response)

	result := fiber.Map{
		"response": resolved.Response,
		"action":   resolved.Action,
		"session_update": fiber.Map{
			"action_executed": outcome.Action,
			"message":         outcome.Message,
		},
		"current_step": after.CurrentStep,
		"step_status":  after.StepStatus,
		"total_steps":  after.StepCount,
	}

	if step := r.StepAt(after.CurrentStep); step != nil {
		result["current_step_info"] = fiber.Map{
			"instruction":    step.Instruction,
			"estimated_time": int(step.EstimatedTime.Seconds()),
			"tips":           step.Tips,
		}
		if outcome.Advanced {
			result["step_introduction"] = s.resolver.StepIntroduction(ctx, after, r)
		}
	}
	if outcome.Finished {
		result["finished"] = true
	}

	s.events.Broadcast(sessionID, fiber.Map{
		"type": "session_update",
		"data": result,
	})

	return result, nil
}

// handleStatus reports the current state of a cooking session.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	recipeID := c.Query("recipe_id")

	r, err := s.recipes.Get(recipeID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Recipe not found")
	}

	snap, err := s.sessions.Get(sessionID)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	}

	return c.JSON(s.statusPayload(sessionID, snap, r))
}

func (s *Server) statusPayload(sessionID string, snap session.Snapshot, r *recipe.Recipe) fiber.Map {
	status := fiber.Map{
		"session_id":           sessionID,
		"recipe_name":          r.Name,
		"current_step":         snap.CurrentStep + 1,
		"total_steps":          snap.StepCount,
		"step_status":          snap.StepStatus,
		"context":              snap.Context,
		"conversation_history": snap.Transcript,
	}

	if step := r.StepAt(snap.CurrentStep); step != nil {
		status["current_instruction"] = step.Instruction
		status["estimated_time"] = int(step.EstimatedTime.Seconds())
	}

	active := make([]fiber.Map, 0, len(snap.Unresolved))
	for _, rec := range snap.Unresolved {
		active = append(active, fiber.Map{
			"type":      rec.Kind,
			"reason":    rec.Reason,
			"timestamp": rec.Timestamp,
		})
	}
	status["active_interruptions"] = active

	return status
}

// handleInterrupt records a cooking interruption.
func (s *Server) handleInterrupt(c *fiber.Ctx) error {
	var req interruptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	kind := session.InterruptionKind(req.InterruptionType)
	if !kind.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid interruption type")
	}

	snap, err := s.sessions.RecordInterruption(req.SessionID, kind, req.Reason, req.UserMessage)
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	}

	s.events.Broadcast(req.SessionID, fiber.Map{
		"type": "interruption",
		"data": fiber.Map{"kind": kind, "reason": req.Reason},
	})

	return c.JSON(fiber.Map{
		"interruption_handled": true,
		"type":                 kind,
		"reason":               req.Reason,
		"session_paused":       snap.StepStatus == session.StatusPaused,
	})
}

// handleEndSession removes a cooking session.
func (s *Server) handleEndSession(c *fiber.Ctx) error {
	if !s.sessions.End(c.Params("session_id")) {
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	}
	return c.JSON(fiber.Map{"message": "Cooking session ended successfully"})
}
