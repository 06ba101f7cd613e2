package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/finsightlab/progression/internal/engine"
	"github.com/finsightlab/progression/internal/identity"
	"github.com/finsightlab/progression/internal/store"
)

const testSessionID = "anon_aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func newTestRouter() http.Handler {
	e := engine.New(engine.DefaultConfig(), store.NewMemory(), nil)
	h := NewHandler(e)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := identity.WithSessionID(req.Context(), testSessionID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	h.RegisterHealth(r)
	h.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", resp["status"])
	}
}

func TestRecordEvent(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/events", map[string]any{
		"category": "analysis_completed",
		"payload":  map[string]any{"ticker": "ACME"},
	})
	if rec.Code != http.StatusAccepted {
		t.Errorf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRecordEvent_UnknownCategory(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/events", map[string]any{
		"category": "page_scroll",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown category, got %d", rec.Code)
	}
}

func TestRecordEvent_MalformedBody(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestStage_ColdStart(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/api/stage", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		StageName  string  `json:"stage_name"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.StageName != "guided_discovery" {
		t.Errorf("Expected guided_discovery, got %q", resp.StageName)
	}
	if resp.Confidence != 0 {
		t.Errorf("Expected confidence 0, got %f", resp.Confidence)
	}
}

func TestProgress_UnknownSessionIsZeroed(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/api/progress", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		AnalysesCompleted int `json:"analyses_completed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.AnalysesCompleted != 0 {
		t.Errorf("Expected zeroed metrics, got %d analyses", resp.AnalysesCompleted)
	}
}

func TestGenerateChallenge_HidesAnswer(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/challenges", map[string]any{
		"category": "ratio_interpretation",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if id, ok := raw["challenge_id"].(string); !ok || id == "" {
		t.Error("Expected a challenge id")
	}
	if _, leaked := raw["answer_schema"]; leaked {
		t.Error("Response must not include the expected answer")
	}
	if _, leaked := raw["template_id"]; leaked {
		t.Error("Response must not include the template id")
	}
	if raw["prompt_data"] == nil {
		t.Error("Expected prompt data")
	}
}

func TestGenerateChallenge_UnknownCategory(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/challenges", map[string]any{
		"category": "essay_writing",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestSubmitAttempt_UnknownChallenge(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/challenges/no-such-id/attempt", map[string]any{
		"choice": "undervalued",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestChallengeFlow(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/challenges", map[string]any{
		"category": "ratio_interpretation",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rec.Code)
	}
	var ch struct {
		ID string `json:"challenge_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ch); err != nil {
		t.Fatalf("Failed to decode challenge: %v", err)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/challenges/"+ch.ID+"/attempt", map[string]any{
		"choice": "undervalued",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Attempt struct {
			ChallengeID      string  `json:"challenge_id"`
			CorrectnessScore float64 `json:"correctness_score"`
		} `json:"attempt"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if result.Attempt.ChallengeID != ch.ID {
		t.Errorf("Expected attempt for %s, got %s", ch.ID, result.Attempt.ChallengeID)
	}
	if result.Attempt.CorrectnessScore < 0 || result.Attempt.CorrectnessScore > 1 {
		t.Errorf("Score out of range: %f", result.Attempt.CorrectnessScore)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/progress", nil)
	var progress struct {
		ChallengesCompleted int `json:"challenges_completed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &progress); err != nil {
		t.Fatalf("Failed to decode progress: %v", err)
	}
	if progress.ChallengesCompleted != 1 {
		t.Errorf("Expected 1 completed challenge, got %d", progress.ChallengesCompleted)
	}
}
