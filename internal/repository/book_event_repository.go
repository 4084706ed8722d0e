package repository

import (
	"context"

	"gorm.io/gorm"

	"books-api/internal/model"
)

type BookEventRepository struct {
	db *gorm.DB
}

func NewBookEventRepository(db *gorm.DB) *BookEventRepository {
	return &BookEventRepository{db: db}
}

func (r *BookEventRepository) Create(ctx context.Context, event *model.BookEvent) error {
	return translateError("create book event", r.db.WithContext(ctx).Create(event).Error)
}

func (r *BookEventRepository) ListByBookID(ctx context.Context, bookID uint, limit int) ([]model.BookEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []model.BookEvent
	if err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("occurred_at ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, translateError("list book events", err)
	}
	return events, nil
}
