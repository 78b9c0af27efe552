package postgres

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
)

// ClipRepo persists saved clips in the audio_file table.
type ClipRepo struct{ Pool PgxPool }

// NewClipRepo constructs a ClipRepo with the given pool.
func NewClipRepo(p PgxPool) *ClipRepo { return &ClipRepo{Pool: p} }

const clipColumns = `id, user_id, category_id, name, file_url, file_key, file_size, duration, input_script, voice, prompt_instructions, created_at, updated_at, deleted_at`

func scanClip(row pgx.Row) (domain.Clip, error) {
	var c domain.Clip
	var voice string
	err := row.Scan(&c.ID, &c.UserID, &c.CategoryID, &c.Name, &c.FileURL, &c.FileKey, &c.FileSize,
		&c.Duration, &c.InputScript, &voice, &c.PromptInstructions, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt)
	c.Voice = domain.Voice(voice)
	return c, err
}

// Create stores a new clip and returns its id (generates one if empty).
func (r *ClipRepo) Create(ctx domain.Context, c domain.Clip) (string, error) {
	ctx, span := startSpan(ctx, "repo.clips", "clips.Create", "INSERT", "audio_file")
	defer span.End()
	id := c.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	q := `INSERT INTO audio_file (id, user_id, category_id, name, file_url, file_key, file_size, duration, input_script, voice, prompt_instructions, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := r.Pool.Exec(ctx, q, id, c.UserID, c.CategoryID, c.Name, c.FileURL, c.FileKey, c.FileSize,
		c.Duration, c.InputScript, string(c.Voice), c.PromptInstructions, createdAt)
	if err != nil {
		span.RecordError(err)
		return "", mapError("clip.create", err)
	}
	return id, nil
}

// Get loads one of the user's live clips.
func (r *ClipRepo) Get(ctx domain.Context, userID, id string) (domain.Clip, error) {
	ctx, span := startSpan(ctx, "repo.clips", "clips.Get", "SELECT", "audio_file")
	defer span.End()
	q := `SELECT ` + clipColumns + ` FROM audio_file WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL`
	c, err := scanClip(r.Pool.QueryRow(ctx, q, id, userID))
	if err != nil {
		return domain.Clip{}, mapError("clip.get", err)
	}
	return c, nil
}

// List returns the user's live clips, newest first.
func (r *ClipRepo) List(ctx domain.Context, userID string) ([]domain.Clip, error) {
	ctx, span := startSpan(ctx, "repo.clips", "clips.List", "SELECT", "audio_file")
	defer span.End()
	q := `SELECT ` + clipColumns + ` FROM audio_file WHERE user_id=$1 AND deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, mapError("clip.list", err)
	}
	defer rows.Close()
	out := []domain.Clip{}
	for rows.Next() {
		c, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("op=clip.list: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=clip.list: %w", err)
	}
	return out, nil
}

// Update applies the provided fields and returns the updated clip.
func (r *ClipRepo) Update(ctx domain.Context, userID, id string, upd domain.ClipUpdate, at time.Time) (domain.Clip, error) {
	ctx, span := startSpan(ctx, "repo.clips", "clips.Update", "UPDATE", "audio_file")
	defer span.End()

	sets := []string{"updated_at=$3"}
	args := []any{id, userID, at}
	if upd.Name != nil {
		args = append(args, *upd.Name)
		sets = append(sets, "name=$"+strconv.Itoa(len(args)))
	}
	if upd.CategoryID != nil {
		args = append(args, *upd.CategoryID)
		sets = append(sets, "category_id=$"+strconv.Itoa(len(args)))
	}
	q := `UPDATE audio_file SET ` + strings.Join(sets, ", ") +
		` WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL RETURNING ` + clipColumns
	c, err := scanClip(r.Pool.QueryRow(ctx, q, args...))
	if err != nil {
		span.RecordError(err)
		return domain.Clip{}, mapError("clip.update", err)
	}
	return c, nil
}

// SoftDelete marks a live clip as deleted.
func (r *ClipRepo) SoftDelete(ctx domain.Context, userID, id string, at time.Time) error {
	ctx, span := startSpan(ctx, "repo.clips", "clips.SoftDelete", "UPDATE", "audio_file")
	defer span.End()
	q := `UPDATE audio_file SET deleted_at=$3, updated_at=$3 WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL`
	tag, err := r.Pool.Exec(ctx, q, id, userID, at)
	if err != nil {
		span.RecordError(err)
		return mapError("clip.soft_delete", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=clip.soft_delete: %w", domain.ErrNotFound)
	}
	return nil
}
