package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
	"github.com/fairyhunter13/ai-voice-studio/internal/usecase"
)

type clipResponse struct {
	ID                 string     `json:"id"`
	CategoryID         *string    `json:"categoryId"`
	Name               string     `json:"name"`
	FileURL            string     `json:"fileUrl"`
	FileSize           *int64     `json:"fileSize"`
	Duration           *float64   `json:"duration"`
	InputScript        string     `json:"inputScript"`
	Voice              string     `json:"voice"`
	PromptInstructions *string    `json:"promptInstructions"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          *time.Time `json:"updatedAt"`
}

func toClipResponse(c domain.Clip) clipResponse {
	return clipResponse{
		ID:                 c.ID,
		CategoryID:         c.CategoryID,
		Name:               c.Name,
		FileURL:            c.FileURL,
		FileSize:           c.FileSize,
		Duration:           c.Duration,
		InputScript:        c.InputScript,
		Voice:              string(c.Voice),
		PromptInstructions: c.PromptInstructions,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

// sniffAudio detects the uploaded content type and requires an audio type.
func sniffAudio(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return mt.String(), nil
		}
	}
	return "", fmt.Errorf("%w: audio file has unsupported type %s", domain.ErrInvalidArgument, mt.String())
}

// SaveClipHandler stores an uploaded clip with its generation parameters.
func (s *Server) SaveClipHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) || strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code: "INVALID_ARGUMENT", Message: "payload too large", Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, _, err := r.FormFile("audio")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: audio file required", domain.ErrInvalidArgument), map[string]string{"field": "audio"})
			return
		}
		defer func() { _ = file.Close() }()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: read audio: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		ct, err := sniffAudio(data)
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "audio"})
			return
		}

		in := usecase.SaveInput{
			Name:               r.FormValue("name"),
			CategoryID:         r.FormValue("categoryId"),
			InputScript:        r.FormValue("inputScript"),
			Voice:              r.FormValue("voice"),
			PromptInstructions: r.FormValue("promptInstructions"),
			Audio:              data,
			ContentType:        ct,
		}
		if d := strings.TrimSpace(r.FormValue("duration")); d != "" {
			v, err := strconv.ParseFloat(d, 64)
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: duration must be a number", domain.ErrInvalidArgument), map[string]string{"field": "duration"})
				return
			}
			in.Duration = &v
		}

		clip, err := s.Library.Save(r.Context(), userIDFrom(r), in)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeSuccess(w, http.StatusCreated, "Audio saved successfully", toClipResponse(clip))
	}
}

// ListClipsHandler lists the caller's clips, newest first.
func (s *Server) ListClipsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clips, err := s.Library.List(r.Context(), userIDFrom(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]clipResponse, 0, len(clips))
		for _, c := range clips {
			out = append(out, toClipResponse(c))
		}
		writeSuccess(w, http.StatusOK, "Audio files retrieved", out)
	}
}

// GetClipHandler returns one clip.
func (s *Server) GetClipHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := ValidateID(id); err != nil {
			writeError(w, r, err, map[string]string{"field": "id"})
			return
		}
		clip, err := s.Library.Get(r.Context(), userIDFrom(r), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeSuccess(w, http.StatusOK, "Audio file retrieved", toClipResponse(clip))
	}
}

// UpdateClipHandler renames or recategorizes a clip.
func (s *Server) UpdateClipHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := ValidateID(id); err != nil {
			writeError(w, r, err, map[string]string{"field": "id"})
			return
		}
		var req updateClipRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		upd, err := req.toUpdate()
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "categoryId"})
			return
		}
		clip, err := s.Library.Update(r.Context(), userIDFrom(r), id, upd)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeSuccess(w, http.StatusOK, "Audio file updated", toClipResponse(clip))
	}
}

// DeleteClipHandler deletes a clip and its stored audio.
func (s *Server) DeleteClipHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := ValidateID(id); err != nil {
			writeError(w, r, err, map[string]string{"field": "id"})
			return
		}
		if err := s.Library.Delete(r.Context(), userIDFrom(r), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeSuccess(w, http.StatusOK, "Audio file deleted", nil)
	}
}
