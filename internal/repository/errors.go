package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// translateError maps gorm errors onto the repository sentinels. It relies on
// gorm.Config.TranslateError so that dialect specific unique violations
// arrive as gorm.ErrDuplicatedKey.
func translateError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s failed: %w", op, ErrDuplicateEntry)
	default:
		return fmt.Errorf("%s failed: %w", op, err)
	}
}
