package web_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodingo/foodingo/pkg/recipe"
	"github.com/foodingo/foodingo/pkg/resolver"
	"github.com/foodingo/foodingo/pkg/session"
	"github.com/foodingo/foodingo/pkg/web"
)

func newTestServer(res resolver.Resolver) *web.Server {
	if res == nil {
		res = resolver.NewRules()
	}
	return web.NewServer(session.NewManager(nil), recipe.NewMemoryCatalog(), res, nil)
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestRootHealth(t *testing.T) {
	s := newTestServer(nil)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "running")
}

func TestListRecipes(t *testing.T) {
	s := newTestServer(nil)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/recipes", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	recipes, ok := body["recipes"].([]any)
	require.True(t, ok, "recipes field missing")
	require.NotEmpty(t, recipes)

	first := recipes[0].(map[string]any)
	assert.Equal(t, "classic_beef_burger", first["id"])
	// Listing view must not include the step list.
	assert.NotContains(t, first, "steps")
}

func TestGetRecipe(t *testing.T) {
	s := newTestServer(nil)

	t.Run("found", func(t *testing.T) {
		resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/recipes/classic_beef_burger", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, "Classic Beef Burger", body["name"])
		steps := body["steps"].([]any)
		assert.Len(t, steps, 8)
	})

	t.Run("missing", func(t *testing.T) {
		resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/recipes/nope", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestStartCooking(t *testing.T) {
	s := newTestServer(nil)

	resp := postJSON(t, s.App(), "/cooking/start", map[string]string{
		"recipe_id": "classic_beef_burger",
		"user_id":   "u1",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["session_id"])
	assert.Equal(t, "ready_to_start", body["status"])
	assert.Contains(t, body["welcome_message"], "Classic Beef Burger")

	rec := body["recipe"].(map[string]any)
	assert.Equal(t, float64(8), rec["total_steps"])
	assert.Equal(t, float64(25), rec["estimated_total_time"])
}

func TestStartCookingUnknownRecipe(t *testing.T) {
	s := newTestServer(nil)

	resp := postJSON(t, s.App(), "/cooking/start", map[string]string{"recipe_id": "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func startSession(t *testing.T, s *web.Server) string {
	t.Helper()
	resp := postJSON(t, s.App(), "/cooking/start", map[string]string{
		"recipe_id": "classic_beef_burger",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	return body["session_id"].(string)
}

func TestUserInputAdvancesStep(t *testing.T) {
	res := resolver.NewMock(
		&resolver.Result{Action: session.ActionNextStep, Response: "Moving on!"},
	)
	s := newTestServer(res)
	id := startSession(t, s)

	resp := postJSON(t, s.App(), "/cooking/input", map[string]string{
		"session_id": id,
		"recipe_id":  "classic_beef_burger",
		"user_input": "next step please",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Moving on!", body["response"])
	assert.Equal(t, "next_step", body["action"])
	assert.Equal(t, float64(1), body["current_step"])
	assert.Contains(t, body, "step_introduction")

	info := body["current_step_info"].(map[string]any)
	assert.Contains(t, info["instruction"], "patties")

	assert.Equal(t, []string{"next step please"}, res.Inputs())
}

func TestUserInputPauseDoesNotAdvance(t *testing.T) {
	s := newTestServer(resolver.NewMock(
		&resolver.Result{Action: session.ActionPause, Response: "Paused."},
	))
	id := startSession(t, s)

	resp := postJSON(t, s.App(), "/cooking/input", map[string]string{
		"session_id": id,
		"recipe_id":  "classic_beef_burger",
		"user_input": "hold on a second",
	})
	body := decodeBody(t, resp)

	assert.Equal(t, float64(0), body["current_step"])
	assert.Equal(t, string(session.StatusPaused), body["step_status"])
	assert.NotContains(t, body, "step_introduction")
}

func TestUserInputUnknownSession(t *testing.T) {
	s := newTestServer(nil)

	resp := postJSON(t, s.App(), "/cooking/input", map[string]string{
		"session_id": "ghost",
		"recipe_id":  "classic_beef_burger",
		"user_input": "next",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(nil)
	id := startSession(t, s)

	target := fmt.Sprintf("/cooking/status/%s?recipe_id=classic_beef_burger", id)
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Classic Beef Burger", body["recipe_name"])
	// Status reports the human step number, so a fresh session is on 1.
	assert.Equal(t, float64(1), body["current_step"])
	assert.Equal(t, float64(8), body["total_steps"])
	assert.Empty(t, body["active_interruptions"])
}

func TestInterruptEndpoint(t *testing.T) {
	s := newTestServer(nil)
	id := startSession(t, s)

	t.Run("disaster pauses the session", func(t *testing.T) {
		resp := postJSON(t, s.App(), "/cooking/interrupt", map[string]string{
			"session_id":        id,
			"interruption_type": "disaster",
			"reason":            "dropped the patty",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["interruption_handled"])
		assert.Equal(t, "disaster", body["type"])
		assert.Equal(t, true, body["session_paused"])
	})

	t.Run("invalid type rejected", func(t *testing.T) {
		resp := postJSON(t, s.App(), "/cooking/interrupt", map[string]string{
			"session_id":        id,
			"interruption_type": "meteor",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("interruption appears in status", func(t *testing.T) {
		target := fmt.Sprintf("/cooking/status/%s?recipe_id=classic_beef_burger", id)
		resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, target, nil))
		require.NoError(t, err)

		body := decodeBody(t, resp)
		active := body["active_interruptions"].([]any)
		require.Len(t, active, 1)
		entry := active[0].(map[string]any)
		assert.Equal(t, "disaster", entry["type"])
		assert.Equal(t, "dropped the patty", entry["reason"])
	})
}

func TestEndSession(t *testing.T) {
	s := newTestServer(nil)
	id := startSession(t, s)

	req := httptest.NewRequest(http.MethodDelete, "/cooking/"+id, nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Second delete is a 404.
	resp, err = s.App().Test(httptest.NewRequest(http.MethodDelete, "/cooking/"+id, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCookThroughToCompletion(t *testing.T) {
	s := newTestServer(resolver.NewRules())
	id := startSession(t, s)

	var body map[string]any
	for i := 0; i < 8; i++ {
		resp := postJSON(t, s.App(), "/cooking/input", map[string]string{
			"session_id": id,
			"recipe_id":  "classic_beef_burger",
			"user_input": "next step",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body = decodeBody(t, resp)
	}

	assert.Equal(t, true, body["finished"])
	assert.Equal(t, float64(8), body["current_step"])
	assert.Equal(t, string(session.StatusCompleted), body["step_status"])
	assert.True(t, strings.Contains(body["response"].(string), "completed") ||
		strings.Contains(body["response"].(string), "Great job"))
}
