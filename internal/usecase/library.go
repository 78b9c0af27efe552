package usecase

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fairyhunter13/ai-voice-studio/internal/adapter/observability"
	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
	obsctx "github.com/fairyhunter13/ai-voice-studio/internal/observability"
	"github.com/fairyhunter13/ai-voice-studio/pkg/textx"
)

// MaxNameLength bounds clip and category names.
const MaxNameLength = 100

// SaveInput describes a generated clip the user wants to keep.
type SaveInput struct {
	Name               string
	CategoryID         string
	InputScript        string
	Voice              string
	PromptInstructions string
	Duration           *float64
	Audio              []byte
	ContentType        string
}

// LibraryService manages a user's saved clips and their stored audio.
type LibraryService struct {
	Clips      domain.ClipRepository
	Categories domain.CategoryRepository
	Store      domain.ObjectStore
	now        func() time.Time
}

// NewLibraryService constructs a LibraryService with its dependencies.
func NewLibraryService(clips domain.ClipRepository, cats domain.CategoryRepository, store domain.ObjectStore) *LibraryService {
	return &LibraryService{Clips: clips, Categories: cats, Store: store, now: utcNow}
}

func validateName(raw string) (string, error) {
	name := textx.SanitizeText(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name must be at most %d characters", domain.ErrInvalidArgument, MaxNameLength)
	}
	return name, nil
}

// checkCategory rejects category ids the user does not own.
func (s *LibraryService) checkCategory(ctx domain.Context, userID, id string) error {
	if s.Categories == nil {
		return nil
	}
	if _, err := s.Categories.Get(ctx, userID, id); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: unknown category", domain.ErrInvalidArgument)
		}
		return err
	}
	return nil
}

// ObjectKey builds the storage key for a clip: <user>/<unix_ms>-<slug>.<ext>.
func ObjectKey(userID, name string, at time.Time, format domain.AudioFormat) string {
	return userID + "/" + strconv.FormatInt(at.UnixMilli(), 10) + "-" + textx.Slug(name) + "." + string(format)
}

// Save uploads the audio and records the clip. When recording fails the
// uploaded object is removed again.
func (s *LibraryService) Save(ctx domain.Context, userID string, in SaveInput) (domain.Clip, error) {
	lg := obsctx.LoggerFromContext(ctx)

	name, err := validateName(in.Name)
	if err != nil {
		return domain.Clip{}, err
	}
	voice, ok := domain.ParseVoice(in.Voice)
	if !ok {
		return domain.Clip{}, fmt.Errorf("%w: unknown voice %q", domain.ErrInvalidArgument, in.Voice)
	}
	if len(in.Audio) == 0 {
		return domain.Clip{}, fmt.Errorf("%w: audio file is required", domain.ErrInvalidArgument)
	}
	script := strings.TrimSpace(in.InputScript)
	if script == "" {
		return domain.Clip{}, fmt.Errorf("%w: input script is required", domain.ErrInvalidArgument)
	}
	if in.Duration != nil && *in.Duration < 0 {
		return domain.Clip{}, fmt.Errorf("%w: duration must not be negative", domain.ErrInvalidArgument)
	}
	var categoryID *string
	if id := strings.TrimSpace(in.CategoryID); id != "" {
		if err := s.checkCategory(ctx, userID, id); err != nil {
			return domain.Clip{}, err
		}
		categoryID = &id
	}
	var instructions *string
	if p := strings.TrimSpace(in.PromptInstructions); p != "" {
		instructions = &p
	}

	now := s.now()
	format := domain.FormatFromContentType(in.ContentType)
	key := ObjectKey(userID, name, now, format)
	if err := s.Store.Put(ctx, key, in.Audio, format.ContentType()); err != nil {
		lg.Error("audio upload failed", slog.String("file_key", key), slog.Any("error", err))
		return domain.Clip{}, err
	}

	clip := domain.Clip{
		UserID:             userID,
		CategoryID:         categoryID,
		Name:               name,
		FileURL:            s.Store.PublicURL(key),
		FileKey:            key,
		FileSize:           ptr(int64(len(in.Audio))),
		Duration:           in.Duration,
		InputScript:        script,
		Voice:              voice,
		PromptInstructions: instructions,
		CreatedAt:          now,
	}
	id, err := s.Clips.Create(ctx, clip)
	if err != nil {
		if rerr := s.Store.Remove(ctx, key); rerr != nil {
			lg.Warn("orphaned audio object after failed insert", slog.String("file_key", key), slog.Any("error", rerr))
		}
		return domain.Clip{}, err
	}
	clip.ID = id
	observability.RecordClipSaved()
	lg.Info("clip saved", slog.String("clip_id", id), slog.String("file_key", key), slog.Int("bytes", len(in.Audio)))
	return clip, nil
}

// List returns the user's clips, newest first.
func (s *LibraryService) List(ctx domain.Context, userID string) ([]domain.Clip, error) {
	return s.Clips.List(ctx, userID)
}

// Get returns one of the user's clips.
func (s *LibraryService) Get(ctx domain.Context, userID, id string) (domain.Clip, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Clip{}, fmt.Errorf("%w: id required", domain.ErrInvalidArgument)
	}
	return s.Clips.Get(ctx, userID, id)
}

// Update renames or recategorizes a clip. Only provided fields change.
func (s *LibraryService) Update(ctx domain.Context, userID, id string, upd domain.ClipUpdate) (domain.Clip, error) {
	if upd.Empty() {
		return domain.Clip{}, fmt.Errorf("%w: nothing to update", domain.ErrInvalidArgument)
	}
	if upd.Name != nil {
		name, err := validateName(*upd.Name)
		if err != nil {
			return domain.Clip{}, err
		}
		upd.Name = &name
	}
	if upd.CategoryID != nil && *upd.CategoryID != nil {
		cid := strings.TrimSpace(**upd.CategoryID)
		if cid == "" {
			var none *string
			upd.CategoryID = &none
		} else {
			if err := s.checkCategory(ctx, userID, cid); err != nil {
				return domain.Clip{}, err
			}
			upd.CategoryID = ptr(&cid)
		}
	}
	return s.Clips.Update(ctx, userID, id, upd, s.now())
}

// Delete removes the stored audio and soft-deletes the clip. A storage
// failure is logged and does not stop the deletion.
func (s *LibraryService) Delete(ctx domain.Context, userID, id string) error {
	lg := obsctx.LoggerFromContext(ctx)
	clip, err := s.Clips.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.Store.Remove(ctx, clip.FileKey); err != nil {
		lg.Warn("failed to remove audio object", slog.String("clip_id", id), slog.String("file_key", clip.FileKey), slog.Any("error", err))
	}
	if err := s.Clips.SoftDelete(ctx, userID, id, s.now()); err != nil {
		return err
	}
	observability.RecordClipDeleted()
	lg.Info("clip deleted", slog.String("clip_id", id))
	return nil
}
