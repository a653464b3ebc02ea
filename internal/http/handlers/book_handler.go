// Book HTTP handlers.
//
// This file exposes REST endpoints for book records:
//   - POST /books                  (create from a Buddhist Era date, idempotent)
//   - GET  /books?author=&status=  (exact author lookup, optional status filter)
//   - GET  /books/search?q=        (case-insensitive author search)
//   - GET  /books/status/{status}  (list by status, ETag support)
//   - GET  /books/{id}             (fetch one)
//   - PUT  /books/{id}/status      (change status)
//
// Handlers are transport-thin: they validate input, call the BookService,
// and translate results and sentinel errors into HTTP responses.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// creation exists for that key, the handler returns the recorded book and
// sets `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-book-records/internal/calendar"
	"github.com/tbourn/go-book-records/internal/clock"
	"github.com/tbourn/go-book-records/internal/domain"
	"github.com/tbourn/go-book-records/internal/http/middleware"
	"github.com/tbourn/go-book-records/internal/services"
	"github.com/tbourn/go-book-records/internal/utils"
)

//
// Service contracts (context-aware)
//

// BookService defines the book operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type BookService interface {
	// Save validates and persists a new book.
	Save(ctx context.Context, req domain.BookCreationRequest) (*domain.Book, error)
	// Get fetches one book by id.
	Get(ctx context.Context, id uint) (*domain.Book, error)
	// ListByAuthor returns books by the exact author.
	ListByAuthor(ctx context.Context, author string) ([]domain.Book, error)
	// ListByAuthorAndStatus returns books by the exact author in one status.
	ListByAuthorAndStatus(ctx context.Context, author string, status domain.BookStatus) ([]domain.Book, error)
	// ListByStatus returns books in one status, newest first.
	ListByStatus(ctx context.Context, status domain.BookStatus) ([]domain.Book, error)
	// StatusStats returns the size and freshness of a status listing.
	StatusStats(ctx context.Context, status domain.BookStatus) (int64, *time.Time, error)
	// SearchByAuthor returns books whose author contains a fragment.
	SearchByAuthor(ctx context.Context, fragment string) ([]domain.Book, error)
	// UpdateStatus moves a book to a new status.
	UpdateStatus(ctx context.Context, id uint, status domain.BookStatus) (*domain.Book, error)
}

// IdempotencyStore persists the outcome of keyed creations.
type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, key string, bookID uint, status int, ttl time.Duration) (*domain.Idempotency, error)
}

//
// Handler wiring
//

// DefaultIdempotencyTTL is used when New receives a non-positive ttl.
const DefaultIdempotencyTTL = 24 * time.Hour

// Handlers groups the book endpoints. It depends on abstract contracts to
// keep transport concerns separate from business logic.
type Handlers struct {
	books   BookService
	idem    IdempotencyStore
	idemTTL time.Duration
	clk     clock.Clock
}

// New constructs Handlers. idem may be nil, which disables idempotent replay.
func New(books BookService, idem IdempotencyStore, idemTTL time.Duration) *Handlers {
	if idemTTL <= 0 {
		idemTTL = DefaultIdempotencyTTL
	}
	return &Handlers{books: books, idem: idem, idemTTL: idemTTL, clk: clock.System{}}
}

// WithClock sets the clock used for idempotency expiry checks; nil means the
// system clock.
func (h *Handlers) WithClock(c clock.Clock) *Handlers {
	h.clk = clock.Or(c)
	return h
}

//
// DTOs
//

// CreateBookRequest is the JSON payload for creating a book.
type CreateBookRequest struct {
	// Title is 1–255 characters; surrounding whitespace is trimmed.
	Title string `json:"title" binding:"required,max=255" example:"Ramakien"`
	// Author is 1–255 characters; surrounding whitespace is trimmed.
	Author string `json:"author" binding:"required,max=255" example:"King Rama I"`
	// PublishedDate is a Buddhist Era date in yyyy-MM-dd form.
	PublishedDate string `json:"published_date" binding:"required" example:"2568-01-01"`
	// Status defaults to AVAILABLE when omitted.
	Status domain.BookStatus `json:"status,omitempty" swaggertype:"string" enums:"AVAILABLE,BORROWED,RESERVED,MAINTENANCE" example:"AVAILABLE"`
}

// ListBooksResponse wraps a list of books.
type ListBooksResponse struct {
	Books []domain.Book `json:"books"`
}

//
// Handlers
//

// CreateBook godoc
// @ID          createBook
// @Summary     Create a book
// @Description Creates a book from a Buddhist Era publication date (yyyy-MM-dd).
// @Description The year must be after 1000 and not later than the current year once converted.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Books
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateBookRequest  true  "Book payload"
//
// @Success     201  {object}  domain.Book            "Created book"
// @Failure     400  {object}  handlers.ErrorResponse "Invalid input"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /books [post]
func (h *Handlers) CreateBook(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, domain.ErrUnknownStatus) {
			fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, err.Error())
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title, author and published_date are required")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Author) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title and author must not be blank")
		return
	}

	// Idempotency (replay path)
	idemKey, _ := middlewareGetIdempotencyKey(c)
	if idemKey != "" && h.idem != nil {
		if rec, err := h.idem.GetIdempotency(ctx, idemKey, h.clk.Now()); err == nil && rec != nil {
			if prev, err2 := h.books.Get(ctx, rec.BookID); err2 == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, rec.Status, prev)
				return
			}
		}
	}

	b, err := h.books.Save(ctx, domain.BookCreationRequest{
		Title:         req.Title,
		Author:        req.Author,
		PublishedDate: req.PublishedDate,
		Status:        req.Status,
	})
	if err != nil {
		failBook(c, err, ErrCodeCreateFailed)
		return
	}

	// Idempotency (store path): best effort, the book is already saved.
	if idemKey != "" && h.idem != nil {
		if _, err := h.idem.CreateIdempotency(ctx, idemKey, b.ID, http.StatusCreated, h.idemTTL); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Uint("book_id", b.ID).
				Msg("idempotency record not stored")
		}
	}

	ok(c, http.StatusCreated, b)
}

// ListBooks godoc
// @ID          listBooks
// @Summary     List books by author
// @Description Returns books whose author matches exactly (after trimming),
// @Description most recent publication first. An optional status narrows the result.
// @Tags        Books
// @Produce     json
//
// @Param       author  query  string  true  "Author name"  example(King Rama I)
// @Param       status  query  string  false "Book status"  Enums(AVAILABLE,BORROWED,RESERVED,MAINTENANCE)
//
// @Success     200  {object} handlers.ListBooksResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /books [get]
func (h *Handlers) ListBooks(c *gin.Context) {
	ctx := c.Request.Context()
	author := c.Query("author")

	var (
		books []domain.Book
		err   error
	)
	if raw, present := c.GetQuery("status"); present {
		status, perr := domain.ParseStatus(raw)
		if perr != nil {
			fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, perr.Error())
			return
		}
		books, err = h.books.ListByAuthorAndStatus(ctx, author, status)
	} else {
		books, err = h.books.ListByAuthor(ctx, author)
	}
	if err != nil {
		failBook(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListBooksResponse{Books: books})
}

// SearchBooks godoc
// @ID          searchBooks
// @Summary     Search books by author fragment
// @Description Returns books whose author contains q, ignoring case, most recent publication first.
// @Tags        Books
// @Produce     json
//
// @Param       q  query  string  true  "Author fragment"  example(rama)
//
// @Success     200  {object} handlers.ListBooksResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /books/search [get]
func (h *Handlers) SearchBooks(c *gin.Context) {
	books, err := h.books.SearchByAuthor(c.Request.Context(), c.Query("q"))
	if err != nil {
		failBook(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListBooksResponse{Books: books})
}

// ListBooksByStatus godoc
// @ID          listBooksByStatus
// @Summary     List books by status
// @Description Returns books in the given status, most recently created first.
// @Description Responds 304 when If-None-Match matches the current weak ETag.
// @Tags        Books
// @Produce     json
//
// @Param       status         path    string  true  "Book status"  Enums(AVAILABLE,BORROWED,RESERVED,MAINTENANCE)
// @Param       If-None-Match  header  string  false "Previously returned ETag"
//
// @Success     200  {object} handlers.ListBooksResponse
// @Success     304  "Not modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /books/status/{status} [get]
func (h *Handlers) ListBooksByStatus(c *gin.Context) {
	ctx := c.Request.Context()

	status, err := domain.ParseStatus(c.Param("status"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, err.Error())
		return
	}

	// ETag pre-check (best effort).
	if count, maxTS, err := h.books.StatusStats(ctx, status); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"books:%s:%d:%d"`, status, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	books, err := h.books.ListByStatus(ctx, status)
	if err != nil {
		failBook(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListBooksResponse{Books: books})
}

// GetBook godoc
// @ID          getBook
// @Summary     Get a book
// @Tags        Books
// @Produce     json
//
// @Param       id  path  int  true  "Book ID"  minimum(1)
//
// @Success     200  {object} domain.Book
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Book not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /books/{id} [get]
func (h *Handlers) GetBook(c *gin.Context) {
	id, valid := utils.ParseID(c.Param("id"))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return
	}
	b, err := h.books.Get(c.Request.Context(), id)
	if err != nil {
		failBook(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, b)
}

// UpdateBookStatus godoc
// @ID          updateBookStatus
// @Summary     Change a book's status
// @Description Sets the status of an existing book and returns the stored record.
// @Tags        Books
// @Produce     json
//
// @Param       id      path   int     true  "Book ID"      minimum(1)
// @Param       status  query  string  true  "New status"   Enums(AVAILABLE,BORROWED,RESERVED,MAINTENANCE)
//
// @Success     200  {object} domain.Book
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Book not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /books/{id}/status [put]
func (h *Handlers) UpdateBookStatus(c *gin.Context) {
	id, valid := utils.ParseID(c.Param("id"))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return
	}
	raw, present := c.GetQuery("status")
	if !present {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status is required")
		return
	}
	status, err := domain.ParseStatus(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, err.Error())
		return
	}

	b, err := h.books.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		failBook(c, err, ErrCodeUpdateFailed)
		return
	}
	ok(c, http.StatusOK, b)
}

// failBook maps service and calendar errors to the error envelope. Anything
// unrecognised is a 500 carrying fallback.
func failBook(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, calendar.ErrInvalidDate):
		fail(c, http.StatusBadRequest, ErrCodeInvalidDate, err.Error())
	case errors.Is(err, services.ErrYearTooOld):
		fail(c, http.StatusBadRequest, ErrCodeYearTooOld, err.Error())
	case errors.Is(err, services.ErrYearInFuture):
		fail(c, http.StatusBadRequest, ErrCodeYearInFuture, err.Error())
	case errors.Is(err, services.ErrBlankAuthor):
		fail(c, http.StatusBadRequest, ErrCodeBlankAuthor, err.Error())
	case errors.Is(err, services.ErrBlankQuery):
		fail(c, http.StatusBadRequest, ErrCodeBlankQuery, err.Error())
	case errors.Is(err, domain.ErrUnknownStatus):
		fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, err.Error())
	case errors.Is(err, services.ErrBookNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "book not found")
	default:
		fail(c, http.StatusInternalServerError, fallback, err.Error())
	}
}

// middlewareGetIdempotencyKey returns the key validated by
// middleware.IdempotencyValidator, falling back to the raw header when the
// middleware is not mounted.
func middlewareGetIdempotencyKey(c *gin.Context) (string, bool) {
	if v, found := middleware.GetIdempotencyKey(c); found {
		return v, true
	}
	if v := strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey)); v != "" {
		return v, true
	}
	return "", false
}
