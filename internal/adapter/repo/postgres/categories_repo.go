package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
)

// CategoryRepo persists clip categories.
type CategoryRepo struct{ Pool PgxPool }

// NewCategoryRepo constructs a CategoryRepo with the given pool.
func NewCategoryRepo(p PgxPool) *CategoryRepo { return &CategoryRepo{Pool: p} }

const categoryColumns = `id, user_id, name, description, created_at, updated_at`

// Create stores a new category and returns its id (generates one if empty).
func (r *CategoryRepo) Create(ctx domain.Context, c domain.Category) (string, error) {
	ctx, span := startSpan(ctx, "repo.categories", "categories.Create", "INSERT", "category")
	defer span.End()
	id := c.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	q := `INSERT INTO category (id, user_id, name, description, created_at) VALUES ($1,$2,$3,$4,$5)`
	if _, err := r.Pool.Exec(ctx, q, id, c.UserID, c.Name, c.Description, createdAt); err != nil {
		span.RecordError(err)
		return "", mapError("category.create", err)
	}
	return id, nil
}

// Get loads one of the user's categories.
func (r *CategoryRepo) Get(ctx domain.Context, userID, id string) (domain.Category, error) {
	ctx, span := startSpan(ctx, "repo.categories", "categories.Get", "SELECT", "category")
	defer span.End()
	q := `SELECT ` + categoryColumns + ` FROM category WHERE id=$1 AND user_id=$2`
	var c domain.Category
	if err := r.Pool.QueryRow(ctx, q, id, userID).Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Category{}, mapError("category.get", err)
	}
	return c, nil
}

// List returns the user's categories ordered by name.
func (r *CategoryRepo) List(ctx domain.Context, userID string) ([]domain.Category, error) {
	ctx, span := startSpan(ctx, "repo.categories", "categories.List", "SELECT", "category")
	defer span.End()
	q := `SELECT ` + categoryColumns + ` FROM category WHERE user_id=$1 ORDER BY lower(name)`
	rows, err := r.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, mapError("category.list", err)
	}
	defer rows.Close()
	out := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("op=category.list: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=category.list: %w", err)
	}
	return out, nil
}
