package app

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUsernameExists    = errors.New("username already registered")
	ErrInvalidCredential = errors.New("incorrect username or password")
	ErrUnauthenticated   = errors.New("could not validate credentials")
	ErrBookNotFound      = errors.New("book not found")
	ErrPageEmpty         = errors.New("no books on page")
	ErrStoreUnavailable  = errors.New("database error occurred")
)

// FieldError describes one rejected input field. Location is where the field
// came from: body, query or path.
type FieldError struct {
	Location string
	Field    string
	Message  string
	Type     string
}

// ValidationError carries every field rejected by a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s.%s: %s", f.Location, f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(location, field, msg, typ string) {
	e.Fields = append(e.Fields, FieldError{Location: location, Field: field, Message: msg, Type: typ})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// PageEmptyError reports a page beyond the end of the collection.
type PageEmptyError struct {
	Page int
	Size int
}

func (e *PageEmptyError) Error() string {
	return fmt.Sprintf("No books found for page %d with size %d.", e.Page, e.Size)
}

func (e *PageEmptyError) Unwrap() error {
	return ErrPageEmpty
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
