package repository

import (
	"context"
	"sync"

	"books-api/internal/model"
)

type MemoryBookEventRepository struct {
	mu     sync.Mutex
	nextID uint
	events []model.BookEvent
}

func NewMemoryBookEventRepository() *MemoryBookEventRepository {
	return &MemoryBookEventRepository{}
}

func (r *MemoryBookEventRepository) Create(_ context.Context, event *model.BookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	event.ID = r.nextID
	r.events = append(r.events, *event)
	return nil
}

func (r *MemoryBookEventRepository) ListByBookID(_ context.Context, bookID uint, limit int) ([]model.BookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.BookEvent
	for _, e := range r.events {
		if e.BookID != bookID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
