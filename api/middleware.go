package main

import (
	"context"
	"net/http"
	"strings"

	"fieldrisk/api/logging"
	"fieldrisk/api/session"

	"github.com/google/uuid"
)

type ctxKey string

const sessionKey ctxKey = "session"

const requestIDHeader = "X-Request-ID"

// requestID tags the request context and response with an id, reusing the
// caller's when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
	})
}

// sessionMiddleware resolves the bearer token to a live session.
func (a *App) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		sid, err := parseSessionToken(a.cfg.SessionSecret, strings.TrimPrefix(authz, "Bearer "))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		sc, ok := a.sessions.Get(sid)
		if !ok {
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// mustSession returns the session put in place by sessionMiddleware.
func mustSession(r *http.Request) *session.Context {
	return r.Context().Value(sessionKey).(*session.Context)
}
