package repository

import (
	"context"
	"sort"
	"sync"

	"books-api/internal/model"
)

// MemoryBookRepository keeps books in-process, ordered by id.
type MemoryBookRepository struct {
	mu     sync.RWMutex
	nextID uint
	books  map[uint]model.Book
}

func NewMemoryBookRepository() *MemoryBookRepository {
	return &MemoryBookRepository{books: make(map[uint]model.Book)}
}

func (r *MemoryBookRepository) Create(_ context.Context, book *model.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	book.ID = r.nextID
	r.books[book.ID] = cloneBook(*book)
	return nil
}

func (r *MemoryBookRepository) GetByID(_ context.Context, id uint) (*model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	book, ok := r.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneBook(book)
	return &out, nil
}

func (r *MemoryBookRepository) List(_ context.Context, offset, limit int) ([]model.Book, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint, 0, len(r.books))
	for id := range r.books {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	total := int64(len(ids))
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) || limit <= 0 {
		return []model.Book{}, total, nil
	}
	end := offset + limit
	if limit > len(ids)-offset {
		end = len(ids)
	}
	books := make([]model.Book, 0, end-offset)
	for _, id := range ids[offset:end] {
		books = append(books, cloneBook(r.books[id]))
	}
	return books, total, nil
}

func (r *MemoryBookRepository) Update(_ context.Context, id uint, patch model.BookPatch) (*model.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	book, ok := r.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.Apply(&book)
	r.books[id] = cloneBook(book)
	out := cloneBook(book)
	return &out, nil
}

func (r *MemoryBookRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[id]; !ok {
		return ErrNotFound
	}
	delete(r.books, id)
	return nil
}

func cloneBook(b model.Book) model.Book {
	if b.Summary != nil {
		summary := *b.Summary
		b.Summary = &summary
	}
	return b
}
