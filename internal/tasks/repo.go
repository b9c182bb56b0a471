package tasks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrTitleRequired = errors.New("title required")
	ErrNotFound      = errors.New("task not found")
)

type Repository interface {
	Create(ctx context.Context, t NewTask) (Task, error)
	List(ctx context.Context, f ListFilter) ([]Task, error)
	Get(ctx context.Context, id int64) (Task, error)
	Update(ctx context.Context, id int64, p TaskPatch) (Task, error)
	Delete(ctx context.Context, id int64) error
}

// InMemoryRepo keeps tasks in a map. It mirrors the SQLite repository's
// semantics (ordering, null handling, filter behavior) so handler tests
// can run against it without a database file.
type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[int64]Task
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[int64]Task),
	}
}

func (r *InMemoryRepo) Create(ctx context.Context, t NewTask) (Task, error) {
	if strings.TrimSpace(t.Title) == "" {
		return Task{}, ErrTitleRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	stored := Task{
		ID:        r.seq,
		Title:     t.Title,
		Details:   copyString(t.Details),
		Done:      t.Done,
		Priority:  t.Priority,
		DueDate:   copyString(t.DueDate),
		CreatedAt: time.Now().UTC(),
	}
	r.store[stored.ID] = stored
	return stored, nil
}

func (r *InMemoryRepo) Get(ctx context.Context, id int64) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (r *InMemoryRepo) Update(ctx context.Context, id int64, p TaskPatch) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return Task{}, ErrNotFound
	}

	if p.Title != nil {
		t.Title = *p.Title
	}
	switch {
	case p.ClearDetails:
		t.Details = nil
	case p.Details != nil:
		t.Details = copyString(p.Details)
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		t.DueDate = copyString(p.DueDate)
	}

	now := time.Now().UTC()
	t.UpdatedAt = &now
	r.store[id] = t
	return t, nil
}

func (r *InMemoryRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return ErrNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *InMemoryRepo) List(ctx context.Context, f ListFilter) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Task, 0, len(r.store))
	for _, t := range r.store {
		if matchesFilter(t, f) {
			out = append(out, t)
		}
	}
	sortTasks(out, f.Sort, f.Order)

	if f.Offset >= len(out) {
		return []Task{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchesFilter(t Task, f ListFilter) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		inTitle := strings.Contains(strings.ToLower(t.Title), q)
		inDetails := t.Details != nil && strings.Contains(strings.ToLower(*t.Details), q)
		if !inTitle && !inDetails {
			return false
		}
	}
	if f.Done != nil && t.Done != *f.Done {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.DueBefore != "" && (t.DueDate == nil || *t.DueDate > f.DueBefore) {
		return false
	}
	if f.DueAfter != "" && (t.DueDate == nil || *t.DueDate < f.DueAfter) {
		return false
	}
	return true
}

// sortTasks orders by the sort key with id ascending as tiebreak. Tasks
// without a due date sort before dated ones ascending and after them
// descending, matching SQLite's NULL placement.
func sortTasks(ts []Task, key, order string) {
	desc := order == OrderDesc
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if desc {
			a, b = b, a
		}
		switch key {
		case SortPriority:
			if a.Priority != b.Priority {
				return a.Priority < b.Priority
			}
		case SortDueDate:
			switch {
			case a.DueDate == nil && b.DueDate != nil:
				return true
			case a.DueDate != nil && b.DueDate == nil:
				return false
			case a.DueDate != nil && b.DueDate != nil && *a.DueDate != *b.DueDate:
				return *a.DueDate < *b.DueDate
			}
		default: // created_at
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return ts[i].ID < ts[j].ID
	})
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
