package usecase

import (
	"errors"
	"fmt"

	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
	"github.com/fairyhunter13/ai-voice-studio/pkg/textx"
)

// CategoryService groups clips into user-defined categories.
type CategoryService struct {
	Repo domain.CategoryRepository
}

// NewCategoryService constructs a CategoryService with the given repo.
func NewCategoryService(r domain.CategoryRepository) CategoryService {
	return CategoryService{Repo: r}
}

// Create validates and stores a category.
func (s CategoryService) Create(ctx domain.Context, userID, name, description string) (domain.Category, error) {
	name, err := validateName(name)
	if err != nil {
		return domain.Category{}, err
	}
	c := domain.Category{UserID: userID, Name: name, CreatedAt: utcNow()}
	if d := textx.SanitizeText(description); d != "" {
		c.Description = &d
	}
	id, err := s.Repo.Create(ctx, c)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.Category{}, fmt.Errorf("%w: category %q already exists", domain.ErrConflict, name)
		}
		return domain.Category{}, err
	}
	c.ID = id
	return c, nil
}

// List returns the user's categories.
func (s CategoryService) List(ctx domain.Context, userID string) ([]domain.Category, error) {
	return s.Repo.List(ctx, userID)
}

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }

