package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"books-api/internal/model"
)

// BookCache is a read-through cache for single book lookups.
type BookCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewBookCache(client *redisv9.Client, ttl time.Duration) *BookCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &BookCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *BookCache) GetBook(ctx context.Context, id uint) (*model.Book, bool, error) {
	raw, err := c.client.Get(ctx, c.bookKey(id)).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get book failed: %w", err)
	}

	var book model.Book
	if err := json.Unmarshal(raw, &book); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached book failed: %w", err)
	}
	return &book, true, nil
}

func (c *BookCache) SetBook(ctx context.Context, book *model.Book) error {
	payload, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("marshal book cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.bookKey(book.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set book failed: %w", err)
	}
	return nil
}

func (c *BookCache) DeleteBook(ctx context.Context, id uint) error {
	if err := c.client.Del(ctx, c.bookKey(id)).Err(); err != nil {
		return fmt.Errorf("redis delete book failed: %w", err)
	}
	return nil
}

func (c *BookCache) bookKey(id uint) string {
	return fmt.Sprintf("books:book:%d", id)
}
