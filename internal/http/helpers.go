package http

import (
	"context"
	"encoding/json"
	"net/http"

	"kanisafin/internal/session"
)

// writeJSON encodes v with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// currentSession returns the session RequireAuth guaranteed.
func currentSession(r *http.Request) *session.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}

// saveSession persists changes to the cookie; failure only loses the
// remembered section, so it is logged and ignored.
func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := s.sessions.Save(w, sess); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to save session", "error", err)
	}
}

// contextWithTimeout is for routes outside the authenticated chain.
func contextWithTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), handlerTimeout)
}
