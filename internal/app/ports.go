package app

import (
	"context"

	"books-api/internal/model"
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
}

type BookStore interface {
	Create(ctx context.Context, book *model.Book) error
	GetByID(ctx context.Context, id uint) (*model.Book, error)
	List(ctx context.Context, offset, limit int) ([]model.Book, int64, error)
	Update(ctx context.Context, id uint, patch model.BookPatch) (*model.Book, error)
	Delete(ctx context.Context, id uint) error
}

type BookCache interface {
	GetBook(ctx context.Context, id uint) (*model.Book, bool, error)
	SetBook(ctx context.Context, book *model.Book) error
	DeleteBook(ctx context.Context, id uint) error
}

type BookEventPublisher interface {
	PublishBookEvent(ctx context.Context, event model.BookEvent) error
}
