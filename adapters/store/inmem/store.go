package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/kompox/aksgraph/domain"
	"github.com/kompox/aksgraph/domain/model"
)

// StackRepository is a thread-safe in-memory snapshot store. Snapshots are
// deep copied on the way in and out.
type StackRepository struct {
	mu    sync.RWMutex
	items map[string]*model.Snapshot
}

func NewStackRepository() *StackRepository {
	return &StackRepository{items: make(map[string]*model.Snapshot)}
}

func (r *StackRepository) Get(_ context.Context, stack string) (*model.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[stack]
	if !ok {
		return nil, model.ErrStackNotFound
	}
	return v.Copy(), nil
}

func (r *StackRepository) Save(_ context.Context, s *model.Snapshot) error {
	if s.Stack == "" {
		return model.ErrStackInvalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.Stack] = s.Copy()
	return nil
}

func (r *StackRepository) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.items))
	for k := range r.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func (r *StackRepository) Delete(_ context.Context, stack string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[stack]; !ok {
		return model.ErrStackNotFound
	}
	delete(r.items, stack)
	return nil
}

// Compile-time assertions
var _ domain.SnapshotRepository = (*StackRepository)(nil)
