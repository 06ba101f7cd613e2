// Package api provides HTTP handlers for the progression API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/finsightlab/progression/internal/domain"
	"github.com/finsightlab/progression/internal/engine"
	"github.com/finsightlab/progression/internal/identity"
)

const maxBodyBytes = 64 * 1024

// Handler serves the progression engine over HTTP. The session id always
// comes from the identity middleware, never from the request body.
type Handler struct {
	engine *engine.Engine
}

// NewHandler creates a new Handler over an engine.
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes mounts the progression API under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/events", h.RecordEvent)
		r.Get("/stage", h.Stage)
		r.Get("/badges", h.Badges)
		r.Get("/progress", h.Progress)
		r.Post("/challenges", h.GenerateChallenge)
		r.Post("/challenges/{challengeID}/attempt", h.SubmitAttempt)
	})
}

// RegisterHealth mounts the health endpoint. Degraded storage is reported
// but never fails the check: the engine keeps serving from memory.
func (h *Handler) RegisterHealth(r chi.Router) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		storage := "ok"
		if err := h.engine.Ping(r.Context()); err != nil {
			storage = "degraded"
		}
		JSON(w, http.StatusOK, map[string]string{"status": "ok", "storage": storage})
	})
}

type recordEventRequest struct {
	Category string         `json:"category"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// RecordEvent handles POST /api/events.
func (h *Handler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())

	var req recordEventRequest
	if err := decodeBody(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.RecordEvent(r.Context(), sessionID, req.Category, req.Payload); err != nil {
		var invalid *domain.InvalidEventError
		if errors.As(err, &invalid) {
			Error(w, http.StatusBadRequest, invalid.Error())
			return
		}
		Error(w, http.StatusInternalServerError, "failed to record event")
		return
	}

	JSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

// Stage handles GET /api/stage.
func (h *Handler) Stage(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())

	assessment, err := h.engine.Stage(r.Context(), sessionID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to compute stage")
		return
	}
	JSON(w, http.StatusOK, assessment)
}

// Badges handles GET /api/badges.
func (h *Handler) Badges(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())

	badges, err := h.engine.Badges(r.Context(), sessionID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load badges")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"badges": badges})
}

// Progress handles GET /api/progress.
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())

	metrics, err := h.engine.Progress(r.Context(), sessionID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load progress")
		return
	}
	JSON(w, http.StatusOK, metrics)
}

type generateChallengeRequest struct {
	Category string `json:"category,omitempty"`
}

// challengeView is the served shape of a challenge. The expected answer
// and template id stay server-side.
type challengeView struct {
	ID          string                   `json:"challenge_id"`
	Category    domain.ChallengeCategory `json:"category"`
	Tier        int                      `json:"difficulty_tier"`
	GeneratedAt time.Time                `json:"generated_at"`
	Prompt      domain.PromptData        `json:"prompt_data"`
}

func viewOf(ch domain.Challenge) challengeView {
	return challengeView{
		ID:          ch.ID,
		Category:    ch.Category,
		Tier:        ch.Tier,
		GeneratedAt: ch.GeneratedAt,
		Prompt:      ch.Prompt,
	}
}

// GenerateChallenge handles POST /api/challenges. An empty body or empty
// category lets the engine pick a category for the current stage.
func (h *Handler) GenerateChallenge(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())

	var req generateChallengeRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	ch, err := h.engine.GenerateChallenge(r.Context(), sessionID, req.Category)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	JSON(w, http.StatusCreated, viewOf(ch))
}

// SubmitAttempt handles POST /api/challenges/{challengeID}/attempt. The
// body is the submitted answer; malformed answers still score (as zero,
// with a diagnostic), only a missing challenge is an error.
func (h *Handler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	challengeID := chi.URLParam(r, "challengeID")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	result, err := h.engine.SubmitAttempt(r.Context(), sessionID, challengeID, json.RawMessage(body))
	if err != nil {
		if errors.Is(err, domain.ErrChallengeNotFound) {
			Error(w, http.StatusNotFound, "challenge not found")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to evaluate attempt")
		return
	}
	JSON(w, http.StatusOK, result)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}
