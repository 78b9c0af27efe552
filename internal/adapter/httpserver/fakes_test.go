package httpserver_test

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
)

type fakeSynth struct{ err error }

func (f fakeSynth) Synthesize(_ domain.Context, req domain.SynthesisRequest) (domain.Audio, error) {
	if f.err != nil {
		return domain.Audio{}, f.err
	}
	return domain.Audio{Data: []byte("audio:" + req.Input), Format: req.Format, ContentType: req.Format.ContentType()}, nil
}

type fakeClips struct {
	mu   sync.Mutex
	rows map[string]domain.Clip
	seq  int
}

func (f *fakeClips) Create(_ domain.Context, c domain.Clip) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	c.ID = "clip-" + strconv.Itoa(f.seq)
	c.CreatedAt = c.CreatedAt.Add(time.Duration(f.seq) * time.Millisecond)
	f.rows[c.ID] = c
	return c.ID, nil
}

func (f *fakeClips) Get(_ domain.Context, userID, id string) (domain.Clip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok || c.UserID != userID || c.DeletedAt != nil {
		return domain.Clip{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeClips) List(_ domain.Context, userID string) ([]domain.Clip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Clip{}
	for _, c := range f.rows {
		if c.UserID == userID && c.DeletedAt == nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeClips) Update(_ domain.Context, userID, id string, upd domain.ClipUpdate, at time.Time) (domain.Clip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
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
	f.rows[id] = c
	return c, nil
}

func (f *fakeClips) SoftDelete(_ domain.Context, userID, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok || c.UserID != userID || c.DeletedAt != nil {
		return domain.ErrNotFound
	}
	c.DeletedAt = &at
	f.rows[id] = c
	return nil
}

type fakeCategories struct {
	mu   sync.Mutex
	rows map[string]domain.Category
}

func (f *fakeCategories) Create(_ domain.Context, c domain.Category) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.rows {
		if e.UserID == c.UserID && e.Name == c.Name {
			return "", domain.ErrConflict
		}
	}
	c.ID = "cat-" + strconv.Itoa(len(f.rows)+1)
	f.rows[c.ID] = c
	return c.ID, nil
}

func (f *fakeCategories) Get(_ domain.Context, userID, id string) (domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok || c.UserID != userID {
		return domain.Category{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeCategories) List(_ domain.Context, userID string) ([]domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Category{}
	for _, c := range f.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeStore) Put(_ domain.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStore) PublicURL(key string) string { return "http://files.test/" + key }

func (f *fakeStore) Remove(_ domain.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}
