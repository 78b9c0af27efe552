package usecase_test

import (
	"sync"
	"time"

	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
)

type stubSynth struct {
	mu    sync.Mutex
	calls []domain.SynthesisRequest
	err   error
}

func (s *stubSynth) Synthesize(_ domain.Context, req domain.SynthesisRequest) (domain.Audio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if s.err != nil {
		return domain.Audio{}, s.err
	}
	return domain.Audio{Data: []byte("ID3audio"), Format: req.Format, ContentType: req.Format.ContentType()}, nil
}

// wordCounter counts one token per four characters.
type wordCounter struct{ err error }

func (w wordCounter) CountTokens(text, _ string) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	return (len(text) + 3) / 4, nil
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (l *stubLimiter) Allow(_ domain.Context, key string, _ int64) (bool, time.Duration, error) {
	l.keys = append(l.keys, key)
	return l.allowed, 30 * time.Second, l.err
}

type memClips struct {
	mu        sync.Mutex
	rows      map[string]domain.Clip
	createErr error
	seq       int
}

func newMemClips() *memClips { return &memClips{rows: map[string]domain.Clip{}} }

func (m *memClips) Create(_ domain.Context, c domain.Clip) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	m.seq++
	c.ID = "clip-" + string(rune('0'+m.seq))
	m.rows[c.ID] = c
	return c.ID, nil
}

func (m *memClips) Get(_ domain.Context, userID, id string) (domain.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || c.UserID != userID || c.DeletedAt != nil {
		return domain.Clip{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *memClips) List(_ domain.Context, userID string) ([]domain.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Clip{}
	for _, c := range m.rows {
		if c.UserID == userID && c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memClips) Update(_ domain.Context, userID, id string, upd domain.ClipUpdate, at time.Time) (domain.Clip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || c.UserID != userID || c.DeletedAt != nil {
		return domain.Clip{}, domain.ErrNotFound
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.CategoryID != nil {
		c.CategoryID = *upd.CategoryID
	}
	c.UpdatedAt = &at
	m.rows[id] = c
	return c, nil
}

func (m *memClips) SoftDelete(_ domain.Context, userID, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || c.UserID != userID || c.DeletedAt != nil {
		return domain.ErrNotFound
	}
	c.DeletedAt = &at
	m.rows[id] = c
	return nil
}

type memCategories struct {
	rows      map[string]domain.Category
	createErr error
}

func (m *memCategories) Create(_ domain.Context, c domain.Category) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	if m.rows == nil {
		m.rows = map[string]domain.Category{}
	}
	c.ID = "cat-" + c.Name
	m.rows[c.ID] = c
	return c.ID, nil
}

func (m *memCategories) Get(_ domain.Context, userID, id string) (domain.Category, error) {
	c, ok := m.rows[id]
	if !ok || c.UserID != userID {
		return domain.Category{}, domain.ErrNotFound
	}
	return c, nil
}

func (m *memCategories) List(_ domain.Context, userID string) ([]domain.Category, error) {
	out := []domain.Category{}
	for _, c := range m.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memStore struct {
	objects   map[string][]byte
	putErr    error
	removeErr error
	removed   []string
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Put(_ domain.Context, key string, data []byte, _ string) error {
	if s.putErr != nil {
		return s.putErr
	}
	if _, ok := s.objects[key]; ok {
		return domain.ErrConflict
	}
	s.objects[key] = data
	return nil
}

func (s *memStore) PublicURL(key string) string { return "https://cdn.test/" + key }

func (s *memStore) Remove(_ domain.Context, key string) error {
	s.removed = append(s.removed, key)
	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.objects, key)
	return nil
}
