// Package pagination holds the page arithmetic shared by list endpoints.
package pagination

import (
	"fmt"
	"math"
)

type Params struct {
	Page int
	Size int
}

// Bounds are the configured limits for page sizes.
type Bounds struct {
	DefaultSize int
	MaxSize     int
}

// FieldError names the offending query parameter.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks page >= 1 and 1 <= size <= MaxSize.
func (b Bounds) Validate(p Params) []FieldError {
	var errs []FieldError
	if p.Page < 1 {
		errs = append(errs, FieldError{Field: "page", Message: "ensure this value is greater than 0"})
	}
	if p.Size < 1 {
		errs = append(errs, FieldError{Field: "size", Message: "ensure this value is greater than 0"})
	} else if p.Size > b.MaxSize {
		errs = append(errs, FieldError{Field: "size", Message: fmt.Sprintf("ensure this value is less than or equal to %d", b.MaxSize)})
	}
	return errs
}

// Offset is the number of rows before the page. It saturates at math.MaxInt
// for pages too large to address, which no store can fill.
func (p Params) Offset() int {
	if p.Page <= 1 || p.Size <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Size
}

// Pages is ceil(total/size).
func (p Params) Pages(total int64) int {
	if p.Size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(p.Size) - 1) / int64(p.Size))
}
