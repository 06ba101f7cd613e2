package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveCORS(frontendURL, origin, method string) *httptest.ResponseRecorder {
	handler := CORS(frontendURL)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/api/progress", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCORS_ConfiguredOriginGetsCredentials(t *testing.T) {
	rec := serveCORS("https://app.finsightlab.io", "https://app.finsightlab.io", http.MethodGet)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.finsightlab.io" {
		t.Errorf("Expected allowed origin to be echoed, got %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("Configured origin must be allowed to send the session cookie")
	}
}

func TestCORS_ForeignOriginGetsNothing(t *testing.T) {
	rec := serveCORS("https://app.finsightlab.io", "https://evil.example", http.MethodGet)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Foreign origin must not be allowed, got %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("Foreign origin must not get credentials")
	}
}

func TestCORS_DevAllowsAnyOriginWithoutCredentials(t *testing.T) {
	rec := serveCORS("", "http://localhost:5173", http.MethodGet)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Expected dev mode to echo the origin, got %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("Echoed wildcard origins must never get credentials")
	}
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	rec := serveCORS("https://app.finsightlab.io", "https://app.finsightlab.io", http.MethodOptions)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("Preflight response must list allowed methods")
	}
}
