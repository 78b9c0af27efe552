package httpserver

import (
	"net/http"
	"time"

	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
)

type categoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toCategoryResponse(c domain.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Description: c.Description, CreatedAt: c.CreatedAt}
}

// CreateCategoryHandler creates a category for the caller.
func (s *Server) CreateCategoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req categoryRequest
		if details, err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		c, err := s.Categories.Create(r.Context(), userIDFrom(r), req.Name, req.Description)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeSuccess(w, http.StatusCreated, "Category created", toCategoryResponse(c))
	}
}

// ListCategoriesHandler lists the caller's categories.
func (s *Server) ListCategoriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := s.Categories.List(r.Context(), userIDFrom(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]categoryResponse, 0, len(cats))
		for _, c := range cats {
			out = append(out, toCategoryResponse(c))
		}
		writeSuccess(w, http.StatusOK, "Categories retrieved", out)
	}
}
