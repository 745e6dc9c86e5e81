package attempt

import (
	"context"
	"sort"
	"sync"

	"github.com/mind-engage/qtdeferred/internal/question"
)

type ListOpts struct {
	QuestionID string
	UserID     string
	State      question.State
	Limit      int
	Offset     int
}

// Store persists attempts and their steps. Steps are append-only.
type Store interface {
	// Create persists a new attempt together with its initial steps.
	Create(ctx context.Context, a Attempt) error
	Get(ctx context.Context, id string) (Attempt, error)
	// AppendStep commits st as the next step of the attempt. st.Seq must equal
	// the number of steps already stored, otherwise ErrConflict is returned.
	AppendStep(ctx context.Context, attemptID string, st Step, summary *string) (Attempt, error)
	// List returns attempts without their steps, newest first.
	List(ctx context.Context, opts ListOpts) ([]Attempt, error)
}

type memoryStore struct {
	mu       sync.RWMutex
	attempts map[string]Attempt
}

func NewInMemoryStore() Store {
	return &memoryStore{attempts: map[string]Attempt{}}
}

func (m *memoryStore) Create(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.attempts[a.ID]; dup {
		return ErrConflict
	}
	m.attempts[a.ID] = a.clone()
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	return a.clone(), nil
}

func (m *memoryStore) AppendStep(_ context.Context, attemptID string, st Step, summary *string) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrNotFound
	}
	a = a.clone()
	if err := a.apply(st.clone(), summary); err != nil {
		return Attempt{}, err
	}
	m.attempts[attemptID] = a
	return a.clone(), nil
}

func (m *memoryStore) List(_ context.Context, opts ListOpts) ([]Attempt, error) {
	m.mu.RLock()
	out := make([]Attempt, 0, len(m.attempts))
	for _, a := range m.attempts {
		if opts.QuestionID != "" && a.QuestionID != opts.QuestionID {
			continue
		}
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		if opts.State != "" && a.State != opts.State {
			continue
		}
		a = a.clone()
		a.Steps = nil
		out = append(out, a)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return page(out, opts.Limit, opts.Offset), nil
}

func page(in []Attempt, limit, offset int) []Attempt {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(in) {
		return []Attempt{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
