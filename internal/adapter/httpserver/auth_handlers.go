package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
	obsctx "github.com/fairyhunter13/ai-voice-studio/internal/observability"
)

// LoginHandler exchanges account credentials for a session cookie.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		if s.Sessions == nil || !s.Sessions.Authenticate(req.Username, req.Password) {
			LoggerFrom(r).Warn("login failed", slog.String("username", req.Username))
			writeError(w, r, fmt.Errorf("%w: invalid username or password", domain.ErrUnauthorized), nil)
			return
		}
		value, err := s.Sessions.CreateSession(req.Username)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		s.Sessions.SetSessionCookie(w, value)
		LoggerFrom(r).Info("login succeeded", slog.String("username", req.Username))
		writeSuccess(w, http.StatusOK, "logged in", map[string]string{"username": req.Username})
	}
}

// LogoutHandler clears the session cookie.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if s.Sessions != nil {
			s.Sessions.ClearSessionCookie(w)
		}
		writeSuccess(w, http.StatusOK, "logged out", nil)
	}
}

func userIDFrom(r *http.Request) string { return obsctx.UserIDFromContext(r.Context()) }
