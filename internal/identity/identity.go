// Package identity provides anonymous per-device session identity. No
// accounts, no PII: a learner is a random cookie id and nothing else.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

const (
	// SessionCookieName carries the anonymous session id. The id is the
	// only identity the progression engine ever sees.
	SessionCookieName = "fnl_session_id"

	sessionCookieMaxAge = 90 * 24 * time.Hour
)

type contextKey int

const sessionIDKey contextKey = iota

var sessionIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// SessionIDFromContext extracts the session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSessionID returns a context carrying a session id, for tests.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func generateSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

func getOrCreateSessionID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(SessionCookieName); err == nil && isValidSessionID(c.Value) {
		setSessionCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateSessionID()
	if err != nil {
		return "", err
	}
	setSessionCookie(w, id, isDev)
	return id, nil
}

func setSessionCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(sessionCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(sessionCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

// Middleware injects the anonymous session id, minting one on first
// contact. The cookie refreshes on every request so an active learner's
// identity never expires under them.
func Middleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := getOrCreateSessionID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish anonymous session"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
