package web

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/foodingo/foodingo/pkg/hub"
)

// wsRequest is an inbound websocket message from a browser client.
type wsRequest struct {
	Type     string `json:"type"`
	RecipeID string `json:"recipe_id"`
	Input    string `json:"input"`
}

// handleSessionWS serves a duplex websocket for one cooking session.
// The client receives broadcast session updates and can send user
// input over the same connection.
func (s *Server) handleSessionWS(conn *websocket.Conn) {
	sessionID := conn.Params("session_id")

	client := hub.NewClient(s.events, conn, sessionID)
	client.OnMessage = func(data []byte) {
		s.handleWSMessage(client, sessionID, data)
	}

	s.logger.Info("websocket attached", "session_id", sessionID)
	client.Run()
}

func (s *Server) handleWSMessage(client *hub.Client, sessionID string, data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		client.Send(fiber.Map{"type": "error", "message": "invalid message"})
		return
	}

	switch req.Type {
	case "user_input":
		result, err := s.processUserInput(context.Background(), sessionID, req.RecipeID, req.Input)
		if err != nil {
			client.Send(fiber.Map{"type": "error", "message": errMessage(err)})
			return
		}
		// processUserInput already broadcast the session update; echo
		// the full response to the sender so it does not have to
		// correlate broadcasts with its own input.
		client.Send(fiber.Map{"type": "ai_response", "data": result})

	case "get_status":
		snap, err := s.sessions.Get(sessionID)
		if err != nil {
			client.Send(fiber.Map{"type": "error", "message": "Session not found"})
			return
		}
		r, err := s.recipes.Get(req.RecipeID)
		if err != nil {
			client.Send(fiber.Map{"type": "error", "message": "Recipe not found"})
			return
		}
		client.Send(fiber.Map{"type": "status", "data": s.statusPayload(sessionID, snap, r)})

	default:
		client.Send(fiber.Map{"type": "error", "message": "unknown message type"})
	}
}

// errMessage extracts a user-facing message from fiber errors.
func errMessage(err error) string {
	if fe, ok := err.(*fiber.Error); ok {
		return fe.Message
	}
	return "internal error"
}
