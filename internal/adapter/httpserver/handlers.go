package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fairyhunter13/ai-voice-studio/internal/config"
	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
	"github.com/fairyhunter13/ai-voice-studio/internal/usecase"
)

// Server aggregates handlers dependencies.
type Server struct {
	Cfg          config.Config
	Generate     *usecase.GenerateService
	Library      *usecase.LibraryService
	Categories   usecase.CategoryService
	Sessions     *SessionManager
	Presets      []config.Preset
	DBCheck      func(ctx context.Context) error
	RedisCheck   func(ctx context.Context) error
	StorageCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, gen *usecase.GenerateService, lib *usecase.LibraryService, cats usecase.CategoryService, sessions *SessionManager, presets []config.Preset, dbCheck, redisCheck, storageCheck func(context.Context) error) *Server {
	if presets == nil {
		presets = config.DefaultPresets()
	}
	return &Server{
		Cfg:          cfg,
		Generate:     gen,
		Library:      lib,
		Categories:   cats,
		Sessions:     sessions,
		Presets:      presets,
		DBCheck:      dbCheck,
		RedisCheck:   redisCheck,
		StorageCheck: storageCheck,
	}
}

type voiceResponse struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// VoicesHandler lists the supported voices and the voice-direction presets.
func (s *Server) VoicesHandler() http.HandlerFunc {
	voices := make([]voiceResponse, 0, len(domain.Voices()))
	for _, v := range domain.Voices() {
		voices = append(voices, voiceResponse{ID: string(v), Label: v.Label(), Description: v.Description()})
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"voices":       voices,
			"defaultVoice": domain.DefaultVoice,
			"presets":      s.Presets,
		})
	}
}

type audioParams struct {
	InputScript        string    `json:"inputScript"`
	Voice              string    `json:"voice"`
	PromptInstructions string    `json:"promptInstructions"`
	Timestamp          time.Time `json:"timestamp"`
}

// GenerateHandler sanitizes the request text, synthesizes speech and
// returns the audio bytes. The parameters actually sent to the provider are
// echoed in the X-Audio-Params header for a later save.
func (s *Server) GenerateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		format := domain.AudioFormat(req.Format)
		if format == "" {
			format = domain.FormatForUserAgent(r.UserAgent())
		}
		out, err := s.Generate.Generate(r.Context(), userIDFrom(r), usecase.GenerateInput{
			Script:    req.InputScript,
			Voice:     req.Voice,
			Direction: req.direction(),
			Format:    format,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}

		params, err := json.Marshal(audioParams{
			InputScript:        out.InputScript,
			Voice:              string(out.Voice),
			PromptInstructions: out.Instructions,
			Timestamp:          out.GeneratedAt,
		})
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: encode audio params: %v", domain.ErrInternal, err), nil)
			return
		}
		ct := out.Audio.ContentType
		if ct == "" {
			ct = out.Format.ContentType()
		}
		h := w.Header()
		h.Set("Content-Type", ct)
		h.Set("Content-Length", strconv.Itoa(len(out.Audio.Data)))
		h.Set("Content-Disposition", fmt.Sprintf(`inline; filename="audio-%s-%d.%s"`, out.Voice, out.GeneratedAt.UnixMilli(), out.Format))
		h.Set("Cache-Control", "no-cache")
		h.Set("X-Audio-Params", string(params))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out.Audio.Data)
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler probes the database, Redis and object storage.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name  string
			check func(context.Context) error
		}{
			{"db", s.DBCheck},
			{"redis", s.RedisCheck},
			{"storage", s.StorageCheck},
		}
		checks := make([]usecase.ReadinessCheck, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.check == nil {
				continue
			}
			if err := p.check(ctx); err != nil {
				ok = false
				checks = append(checks, usecase.ReadinessCheck{Name: p.name, OK: false, Details: err.Error()})
				continue
			}
			checks = append(checks, usecase.ReadinessCheck{Name: p.name, OK: true})
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
