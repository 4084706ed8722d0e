package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"books-api/internal/model"
)

type BookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

func (r *BookRepository) Create(ctx context.Context, book *model.Book) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(book).Error
	})
	return translateError("create book", err)
}

// GetByID returns ErrNotFound when no book has the id.
func (r *BookRepository) GetByID(ctx context.Context, id uint) (*model.Book, error) {
	var book model.Book
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, translateError("get book", err)
	}
	return &book, nil
}

// List returns the full collection count and one window of books ordered by id.
func (r *BookRepository) List(ctx context.Context, offset, limit int) ([]model.Book, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&model.Book{}).Count(&total).Error; err != nil {
		return nil, 0, translateError("count books", err)
	}

	books := make([]model.Book, 0, limit)
	if err := db.Order("id ASC").Offset(offset).Limit(limit).Find(&books).Error; err != nil {
		return nil, 0, translateError("list books", err)
	}
	return books, total, nil
}

// Update applies patch to the locked row and returns the stored result.
func (r *BookRepository) Update(ctx context.Context, id uint, patch model.BookPatch) (*model.Book, error) {
	var book model.Book
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, id).Error; err != nil {
			return err
		}
		if patch.Empty() {
			return nil
		}
		if err := tx.Model(&model.Book{}).Where("id = ?", id).Updates(patch.Columns()).Error; err != nil {
			return err
		}
		book = model.Book{}
		return tx.First(&book, id).Error
	})
	if err != nil {
		return nil, translateError("update book", err)
	}
	return &book, nil
}

func (r *BookRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book model.Book
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&book, id).Error; err != nil {
			return err
		}
		return tx.Delete(&book).Error
	})
	return translateError("delete book", err)
}
