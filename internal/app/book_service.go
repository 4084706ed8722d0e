package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"books-api/internal/metrics"
	"books-api/internal/model"
	"books-api/internal/pkg/optional"
	"books-api/internal/pkg/pagination"
	"books-api/internal/repository"
)

const (
	maxTitleLen  = 255
	maxAuthorLen = 255
	maxGenreLen  = 100
)

type BookService struct {
	books  BookStore
	cache  BookCache
	events BookEventPublisher
	bounds pagination.Bounds
	log    logrus.FieldLogger
	now    func() time.Time
}

type CreateBookInput struct {
	Title         string
	Author        string
	// PublishedDate is required; nil reports a missing field.
	PublishedDate *model.Date
	Summary       *string
	Genre         string
}

// NewBookService wires the book store. cache and events may be nil.
func NewBookService(books BookStore, cache BookCache, events BookEventPublisher, bounds pagination.Bounds, log logrus.FieldLogger) *BookService {
	return &BookService{
		books:  books,
		cache:  cache,
		events: events,
		bounds: bounds,
		log:    log,
		now:    time.Now,
	}
}

func (s *BookService) Create(ctx context.Context, actor string, input CreateBookInput) (*model.Book, error) {
	verr := &ValidationError{}
	checkText(verr, "title", input.Title, maxTitleLen)
	checkText(verr, "author", input.Author, maxAuthorLen)
	checkText(verr, "genre", input.Genre, maxGenreLen)
	if input.PublishedDate == nil {
		verr.add("body", "published_date", "field required", "value_error.missing")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	book := &model.Book{
		Title:         input.Title,
		Author:        input.Author,
		PublishedDate: *input.PublishedDate,
		Summary:       input.Summary,
		Genre:         input.Genre,
	}
	if err := s.books.Create(ctx, book); err != nil {
		s.count("create", "error")
		return nil, storeError("create book", err)
	}
	s.count("create", "ok")
	s.publish(ctx, book.ID, model.BookCreated, actor, nil)
	return book, nil
}

// List returns one page of books. A page past the end is an error rather than
// an empty page.
func (s *BookService) List(ctx context.Context, page, size int) (*model.PaginatedBooks, error) {
	params := pagination.Params{Page: page, Size: size}
	if fieldErrs := s.bounds.Validate(params); len(fieldErrs) > 0 {
		verr := &ValidationError{}
		for _, fe := range fieldErrs {
			verr.add("query", fe.Field, fe.Message, "value_error.number")
		}
		return nil, verr
	}

	items, total, err := s.books.List(ctx, params.Offset(), params.Size)
	if err != nil {
		s.count("list", "error")
		return nil, storeError("list books", err)
	}
	if len(items) == 0 {
		s.count("list", "empty")
		return nil, &PageEmptyError{Page: params.Page, Size: params.Size}
	}
	s.count("list", "ok")
	return &model.PaginatedBooks{
		Total: total,
		Items: items,
		Page:  params.Page,
		Size:  params.Size,
		Pages: params.Pages(total),
	}, nil
}

// DefaultPage is used for parameters the caller omitted.
func (s *BookService) DefaultPage() pagination.Params {
	return pagination.Params{Page: 1, Size: s.bounds.DefaultSize}
}

func (s *BookService) Get(ctx context.Context, id uint) (*model.Book, error) {
	if s.cache != nil {
		cached, hit, err := s.cache.GetBook(ctx, id)
		switch {
		case err != nil:
			metrics.BookCacheRequestsTotal.WithLabelValues("error").Inc()
			s.log.WithError(err).WithField("book_id", id).Warn("book cache read failed")
		case hit:
			metrics.BookCacheRequestsTotal.WithLabelValues("hit").Inc()
			s.count("get", "ok")
			return cached, nil
		default:
			metrics.BookCacheRequestsTotal.WithLabelValues("miss").Inc()
		}
	}

	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, s.bookError("get", err)
	}
	s.count("get", "ok")

	if s.cache != nil {
		if err := s.cache.SetBook(ctx, book); err != nil {
			s.log.WithError(err).WithField("book_id", id).Warn("book cache write failed")
		}
	}
	return book, nil
}

func (s *BookService) Update(ctx context.Context, actor string, id uint, patch model.BookPatch) (*model.Book, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	book, err := s.books.Update(ctx, id, patch)
	if err != nil {
		return nil, s.bookError("update", err)
	}
	s.count("update", "ok")
	s.invalidate(ctx, id)
	s.publish(ctx, id, model.BookUpdated, actor, patch.Columns())
	return book, nil
}

func (s *BookService) Delete(ctx context.Context, actor string, id uint) error {
	if err := s.books.Delete(ctx, id); err != nil {
		return s.bookError("delete", err)
	}
	s.count("delete", "ok")
	s.invalidate(ctx, id)
	s.publish(ctx, id, model.BookDeleted, actor, nil)
	return nil
}

func (s *BookService) bookError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		s.count(op, "not_found")
		return ErrBookNotFound
	}
	s.count(op, "error")
	return storeError(op+" book", err)
}

func (s *BookService) invalidate(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteBook(ctx, id); err != nil {
		s.log.WithError(err).WithField("book_id", id).Warn("book cache invalidation failed")
	}
}

func (s *BookService) publish(ctx context.Context, id uint, typ model.BookEventType, actor string, changes map[string]any) {
	if s.events == nil {
		return
	}
	event := model.BookEvent{BookID: id, Type: typ, Actor: actor, OccurredAt: s.now().UTC()}
	if len(changes) > 0 {
		raw, err := json.Marshal(changes)
		if err != nil {
			s.log.WithError(err).WithField("book_id", id).Warn("encode book event changes failed")
		} else {
			event.Changes = datatypes.JSON(raw)
		}
	}
	if err := s.events.PublishBookEvent(ctx, event); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"book_id": id, "event": typ}).Warn("publish book event failed")
	}
}

func (s *BookService) count(op, outcome string) {
	metrics.BookOperationsTotal.WithLabelValues(op, outcome).Inc()
}

func validatePatch(p model.BookPatch) error {
	verr := &ValidationError{}
	checkOptionalText(verr, "title", p.Title, maxTitleLen)
	checkOptionalText(verr, "author", p.Author, maxAuthorLen)
	checkOptionalText(verr, "genre", p.Genre, maxGenreLen)
	if p.PublishedDate.Set && p.PublishedDate.Null {
		verr.add("body", "published_date", "none is not an allowed value", "type_error.none.not_allowed")
	}
	return verr.orNil()
}

func checkOptionalText(verr *ValidationError, field string, v optional.Value[string], max int) {
	if !v.Set {
		return
	}
	if v.Null {
		verr.add("body", field, "none is not an allowed value", "type_error.none.not_allowed")
		return
	}
	checkText(verr, field, v.Value, max)
}

func checkText(verr *ValidationError, field, value string, max int) {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		verr.add("body", field, "ensure this value has at least 1 characters", "value_error.any_str.min_length")
	case n > max:
		verr.add("body", field, fmt.Sprintf("ensure this value has at most %d characters", max), "value_error.any_str.max_length")
	}
}
