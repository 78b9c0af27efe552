package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrUpstream          = errors.New("upstream error")
	ErrInternal          = errors.New("internal error")
)

// RetryAfterError wraps a throttling error with the time the caller should
// wait before trying again.
type RetryAfterError struct {
	Err   error
	After time.Duration
}

func (e *RetryAfterError) Error() string {
	return e.Err.Error() + ": retry after " + e.After.Round(time.Second).String()
}

func (e *RetryAfterError) Unwrap() error { return e.Err }

// Clip is a saved audio file and the metadata it was generated with.
// Invariants: Name is 1..100 characters; FileKey is scoped under UserID;
// a non-nil DeletedAt hides the clip from every read path.
type Clip struct {
	ID                 string
	UserID             string
	CategoryID         *string
	Name               string
	FileURL            string
	FileKey            string
	FileSize           *int64
	Duration           *float64
	InputScript        string
	Voice              Voice
	PromptInstructions *string
	CreatedAt          time.Time
	UpdatedAt          *time.Time
	DeletedAt          *time.Time
}

// ClipUpdate carries the mutable clip fields. Nil fields are left unchanged;
// a non-nil CategoryID pointing at nil clears the category.
type ClipUpdate struct {
	Name       *string
	CategoryID **string
}

// Empty reports whether the update changes nothing.
func (u ClipUpdate) Empty() bool { return u.Name == nil && u.CategoryID == nil }

type Category struct {
	ID          string
	UserID      string
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// SynthesisRequest is the sanitized input handed to a Synthesizer.
type SynthesisRequest struct {
	Input        string
	Voice        Voice
	Instructions string
	Format       AudioFormat
	Model        string
}

// Audio is a rendered clip as returned by the provider.
type Audio struct {
	Data        []byte
	Format      AudioFormat
	ContentType string
}

// Repositories (ports)

type ClipRepository interface {
	Create(ctx Context, c Clip) (string, error)
	Get(ctx Context, userID, id string) (Clip, error)
	List(ctx Context, userID string) ([]Clip, error)
	Update(ctx Context, userID, id string, upd ClipUpdate, at time.Time) (Clip, error)
	SoftDelete(ctx Context, userID, id string, at time.Time) error
}

type CategoryRepository interface {
	Create(ctx Context, c Category) (string, error)
	Get(ctx Context, userID, id string) (Category, error)
	List(ctx Context, userID string) ([]Category, error)
}

// ObjectStore (port) stores rendered audio under caller-chosen keys.
// Put never overwrites an existing object.
type ObjectStore interface {
	Put(ctx Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
	Remove(ctx Context, key string) error
}

// Synthesizer (port) renders text into speech.
type Synthesizer interface {
	Synthesize(ctx Context, req SynthesisRequest) (Audio, error)
}

// TokenCounter (port) measures synthesis input against the provider's token limit.
type TokenCounter interface {
	CountTokens(text, model string) (int, error)
}

// RateLimiter (port) is a token bucket keyed by "<bucket>:<subject>".
type RateLimiter interface {
	Allow(ctx Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// Context is an alias to allow decoupling from std context in domain
// Adapters and usecases should pass context.Context through.
type Context = context.Context
