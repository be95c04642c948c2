package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mindtv/internal/models"
	"mindtv/internal/repository"
)

// memStore is an in-memory stand-in for the session, sample and event repositories.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	samples  map[string][]models.Sample
	events   []models.RunEvent

	createErr error
	saveErr   error
	lastEvent repository.EventFilter
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]models.Session{}, samples: map[string][]models.Sample{}}
}

func (m *memStore) repos() *repository.Repository {
	return &repository.Repository{
		SessionRepo: memSessions{m},
		SampleRepo:  memSamples{m},
		EventRepo:   memEvents{m},
		Auth:        &mockAuthRepo{},
	}
}

func (m *memStore) eventTypes(sessionID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.events {
		if e.SessionID == sessionID {
			out = append(out, e.Type)
		}
	}
	return out
}

func (m *memStore) session(id string) models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

type memSessions struct{ m *memStore }

func (r memSessions) Create(_ context.Context, s models.Session) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.createErr != nil {
		return r.m.createErr
	}
	r.m.sessions[s.ID] = s
	return nil
}

func (r memSessions) Finish(_ context.Context, id string, f repository.SessionFinish) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, repository.ErrNotFound)
	}
	t := f.FinishedAt
	s.State, s.FinishedAt, s.SampleCount, s.Error = f.State, &t, f.SampleCount, f.Error
	r.m.sessions[id] = s
	return nil
}

func (r memSessions) SetLabel(_ context.Context, id, label string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, repository.ErrNotFound)
	}
	s.Label = label
	r.m.sessions[id] = s
	return nil
}

func (r memSessions) Get(_ context.Context, id string) (models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sessions[id]
	if !ok {
		return models.Session{}, fmt.Errorf("session %s: %w", id, repository.ErrNotFound)
	}
	return s, nil
}

func (r memSessions) List(_ context.Context, limit int) ([]models.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]models.Session, 0, len(r.m.sessions))
	for _, s := range r.m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memSamples struct{ m *memStore }

func (r memSamples) SaveBatch(_ context.Context, sessionID string, samples []models.Sample) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.saveErr != nil {
		return r.m.saveErr
	}
	r.m.samples[sessionID] = append([]models.Sample(nil), samples...)
	return nil
}

func (r memSamples) List(_ context.Context, sessionID string) ([]models.Sample, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return append([]models.Sample(nil), r.m.samples[sessionID]...), nil
}

type memEvents struct{ m *memStore }

func (r memEvents) Append(_ context.Context, e models.RunEvent) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.events = append(r.m.events, e)
	return nil
}

func (r memEvents) List(_ context.Context, f repository.EventFilter) ([]models.RunEvent, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.lastEvent = f
	var out []models.RunEvent
	for _, e := range r.m.events {
		if f.SessionID != "" && e.SessionID != f.SessionID {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
