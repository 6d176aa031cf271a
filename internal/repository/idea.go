// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"sync"

	"ideon/internal/models"
	"ideon/internal/observability"
)

// IdeaMutator edits an idea in place and reports whether it changed anything.
type IdeaMutator func(idea *models.Idea) bool

// IdeaRepository defines interface for idea operations. Ideas are kept in raw
// collection order, newest submission first. Returned ideas are copies.
type IdeaRepository interface {
	List(ctx context.Context) ([]*models.Idea, error)
	GetByID(ctx context.Context, id string) (*models.Idea, error)
	Prepend(ctx context.Context, idea *models.Idea) error
	Update(ctx context.Context, id string, mutate IdeaMutator) (*models.Idea, error)
	UpdateAll(ctx context.Context, mutate IdeaMutator) (int, error)
	Replace(ctx context.Context, ideas []*models.Idea) error
	Version() uint64
}

type memoryIdeaRepository struct {
	mu      sync.RWMutex
	ideas   []*models.Idea
	version uint64
	log     *observability.StoreLogger
}

// NewMemoryIdeaRepository creates an IdeaRepository seeded with ideas.
func NewMemoryIdeaRepository(ideas []*models.Idea) IdeaRepository {
	r := &memoryIdeaRepository{log: observability.NewStoreLogger("ideas")}
	r.ideas = cloneIdeas(ideas)
	return r
}

func (r *memoryIdeaRepository) List(ctx context.Context) ([]*models.Idea, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneIdeas(r.ideas), nil
}

func (r *memoryIdeaRepository) GetByID(ctx context.Context, id string) (*models.Idea, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idea := r.find(id); idea != nil {
		return idea.Clone(), nil
	}
	return nil, models.NewNotFoundError("Idea", id)
}

func (r *memoryIdeaRepository) Prepend(ctx context.Context, idea *models.Idea) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ideas = append([]*models.Idea{idea.Clone()}, r.ideas...)
	r.version++
	r.log.LogCreate(ctx, map[string]interface{}{"idea_id": idea.ID})
	return nil
}

// Update applies mutate to the idea with id. A missing id yields (nil, nil).
func (r *memoryIdeaRepository) Update(ctx context.Context, id string, mutate IdeaMutator) (*models.Idea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idea := r.find(id)
	if idea == nil {
		return nil, nil
	}
	if mutate(idea) {
		r.version++
		r.log.LogUpdate(ctx, map[string]interface{}{"idea_id": id})
	}
	return idea.Clone(), nil
}

func (r *memoryIdeaRepository) UpdateAll(ctx context.Context, mutate IdeaMutator) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := 0
	for _, idea := range r.ideas {
		if mutate(idea) {
			changed++
		}
	}
	if changed > 0 {
		r.version++
		r.log.LogUpdate(ctx, map[string]interface{}{"ideas_changed": changed})
	}
	return changed, nil
}

func (r *memoryIdeaRepository) Replace(ctx context.Context, ideas []*models.Idea) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ideas = cloneIdeas(ideas)
	r.version++
	return nil
}

func (r *memoryIdeaRepository) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

func (r *memoryIdeaRepository) find(id string) *models.Idea {
	for _, idea := range r.ideas {
		if idea.ID == id {
			return idea
		}
	}
	return nil
}

func cloneIdeas(ideas []*models.Idea) []*models.Idea {
	out := make([]*models.Idea, 0, len(ideas))
	for _, idea := range ideas {
		out = append(out, idea.Clone())
	}
	return out
}
