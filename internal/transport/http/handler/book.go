package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"books-api/internal/app"
	"books-api/internal/model"
	"books-api/internal/pkg/optional"
	"books-api/internal/transport/http/middleware"
	"books-api/internal/transport/http/response"
)

type BookHandler struct {
	bookService *app.BookService
	log         logrus.FieldLogger
}

type CreateBookRequest struct {
	Title         string      `json:"title" binding:"required,min=1,max=255"`
	Author        string      `json:"author" binding:"required,min=1,max=255"`
	PublishedDate *model.Date `json:"published_date" binding:"required"`
	Summary       *string     `json:"summary"`
	Genre         string      `json:"genre" binding:"required,min=1,max=100"`
}

// UpdateBookRequest distinguishes absent fields from explicit nulls.
type UpdateBookRequest struct {
	Title         optional.Value[string]     `json:"title"`
	Author        optional.Value[string]     `json:"author"`
	PublishedDate optional.Value[model.Date] `json:"published_date"`
	Summary       optional.Value[string]     `json:"summary"`
	Genre         optional.Value[string]     `json:"genre"`
}

func NewBookHandler(bookService *app.BookService, log logrus.FieldLogger) *BookHandler {
	return &BookHandler{bookService: bookService, log: log}
}

func (h *BookHandler) Create(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, response.BindingItems("body", err))
		return
	}

	book, err := h.bookService.Create(c.Request.Context(), actor(c), app.CreateBookInput{
		Title:         req.Title,
		Author:        req.Author,
		PublishedDate: req.PublishedDate,
		Summary:       req.Summary,
		Genre:         req.Genre,
	})
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (h *BookHandler) List(c *gin.Context) {
	params := h.bookService.DefaultPage()
	var items []response.ValidationItem
	for _, q := range []struct {
		name string
		dst  *int
	}{{"page", &params.Page}, {"size", &params.Size}} {
		raw, ok := c.GetQuery(q.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			items = append(items, response.ValidationItem{
				Loc:  []string{"query", q.name},
				Msg:  "value is not a valid integer",
				Type: "type_error.integer",
			})
			continue
		}
		*q.dst = n
	}
	if len(items) > 0 {
		response.Validation(c, items)
		return
	}

	page, err := h.bookService.List(c.Request.Context(), params.Page, params.Size)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *BookHandler) Get(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	book, err := h.bookService.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *BookHandler) Update(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	var req UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, response.BindingItems("body", err))
		return
	}

	book, err := h.bookService.Update(c.Request.Context(), actor(c), id, model.BookPatch{
		Title:         req.Title,
		Author:        req.Author,
		PublishedDate: req.PublishedDate,
		Summary:       req.Summary,
		Genre:         req.Genre,
	})
	if err != nil {
		handleServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *BookHandler) Delete(c *gin.Context) {
	id, ok := bookID(c)
	if !ok {
		return
	}
	if err := h.bookService.Delete(c.Request.Context(), actor(c), id); err != nil {
		handleServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bookID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Validation(c, []response.ValidationItem{{
			Loc:  []string{"path", "id"},
			Msg:  "value is not a valid integer",
			Type: "type_error.integer",
		}})
		return 0, false
	}
	return uint(id), true
}

func actor(c *gin.Context) string {
	if user, ok := middleware.CurrentUser(c); ok {
		return user.Username
	}
	return ""
}
