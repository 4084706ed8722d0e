package repository

import (
	"context"
	"sync"
	"time"

	"books-api/internal/model"
)

// MemoryUserRepository keeps users in-process. Used by the memory database
// driver and by tests.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID uint
	users  map[uint]model.User
	byName map[string]uint
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[uint]model.User),
		byName: make(map[string]uint),
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[user.Username]; exists {
		return translateError("create user", ErrDuplicateEntry)
	}
	r.nextID++
	user.ID = r.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.users[user.ID] = *user
	r.byName[user.Username] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[username]
	if !ok {
		return nil, nil
	}
	user := r.users[id]
	return &user, nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id uint) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// Count returns the number of stored users.
func (r *MemoryUserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
