// Package services – BookService
//
// This file implements BookService, the application-level component that owns
// book creation and status transitions. It converts Buddhist Era publication
// dates, applies the publication-year policy, normalizes text fields and
// delegates persistence to a BookStore.
//
// Observability: all public methods are OpenTelemetry-instrumented and the
// outcome of creations and status updates is counted in Prometheus.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-book-records/internal/calendar"
	"github.com/tbourn/go-book-records/internal/clock"
	"github.com/tbourn/go-book-records/internal/domain"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/unicode/norm"
)

//go:generate mockgen -source=book_service.go -destination=mocks/book_store.go -package=mocks

// minPublishedYear is exclusive: a book must be published after this year.
const minPublishedYear = 1000

// BookStore is the persistence contract required by BookService.
//
// Absence is reported with gorm.ErrRecordNotFound, which both the GORM
// repository and the in-memory store return.
type BookStore interface {
	// Save inserts a book with a zero ID (assigning ID and timestamps) or
	// writes back an existing one by ID, refreshing UpdatedAt.
	Save(ctx context.Context, b domain.Book) (*domain.Book, error)

	// FindByID fetches one book.
	FindByID(ctx context.Context, id uint) (*domain.Book, error)

	// FindByAuthor returns books whose author equals author exactly,
	// published date descending then id ascending.
	FindByAuthor(ctx context.Context, author string) ([]domain.Book, error)

	// FindByAuthorAndStatus is FindByAuthor narrowed to one status.
	FindByAuthorAndStatus(ctx context.Context, author string, status domain.BookStatus) ([]domain.Book, error)

	// FindByStatus returns books in status, CreatedAt descending then id
	// descending.
	FindByStatus(ctx context.Context, status domain.BookStatus) ([]domain.Book, error)

	// SearchByAuthor returns books whose author contains fragment,
	// ignoring case, published date descending.
	SearchByAuthor(ctx context.Context, fragment string) ([]domain.Book, error)

	// StatusStats returns the count of books in status and their latest
	// UpdatedAt (nil when none).
	StatusStats(ctx context.Context, status domain.BookStatus) (int64, *time.Time, error)
}

// BookService validates book requests and orchestrates the store.
type BookService struct {
	Store BookStore
	// Clock supplies "now" for the publication-year policy.
	Clock clock.Clock
}

// NewBookService constructs a BookService. A nil clk uses the system clock.
func NewBookService(store BookStore, clk clock.Clock) *BookService {
	return &BookService{Store: store, Clock: clock.Or(clk)}
}

func tracer() trace.Tracer { return otel.Tracer("services/BookService") }

// Save converts req.PublishedDate from the Buddhist Era, enforces
// 1000 < year <= current year, trims title and author and persists the book.
// Date conversion errors are returned unchanged (they match
// calendar.ErrInvalidDate); rejected requests never reach the store.
func (s *BookService) Save(ctx context.Context, req domain.BookCreationRequest) (*domain.Book, error) {
	ctx, span := tracer().Start(ctx, "Save",
		trace.WithAttributes(attribute.String("book.published_date.raw", req.PublishedDate)),
	)
	defer span.End()

	date, err := calendar.ToGregorian(req.PublishedDate)
	if err != nil {
		rejections.WithLabelValues(reasonInvalidDate).Inc()
		return nil, fail(span, err)
	}
	if date.Year <= minPublishedYear {
		rejections.WithLabelValues(reasonYearTooOld).Inc()
		return nil, fail(span, ErrYearTooOld)
	}
	if date.Year > clock.Or(s.Clock).Now().Year() {
		rejections.WithLabelValues(reasonYearInFuture).Inc()
		return nil, fail(span, ErrYearInFuture)
	}
	if !req.Status.Valid() {
		return nil, fail(span, domain.ErrUnknownStatus)
	}

	saved, err := s.Store.Save(ctx, domain.Book{
		Title:         normalizeText(req.Title),
		Author:        normalizeText(req.Author),
		PublishedDate: date,
		Status:        req.Status,
	})
	if err != nil {
		return nil, fail(span, err)
	}
	booksCreated.Inc()
	span.SetAttributes(attribute.Int64("book.id", int64(saved.ID)))
	return saved, nil
}

// Get returns the book with id or ErrBookNotFound.
func (s *BookService) Get(ctx context.Context, id uint) (*domain.Book, error) {
	ctx, span := tracer().Start(ctx, "Get",
		trace.WithAttributes(attribute.Int64("book.id", int64(id))),
	)
	defer span.End()

	b, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return nil, fail(span, notFound(err))
	}
	return b, nil
}

// ListByAuthor returns books by the exact (trimmed) author, most recent
// publication first with ties broken by id ascending.
func (s *BookService) ListByAuthor(ctx context.Context, author string) ([]domain.Book, error) {
	author = normalizeText(author)
	ctx, span := tracer().Start(ctx, "ListByAuthor",
		trace.WithAttributes(attribute.String("book.author", author)),
	)
	defer span.End()

	if author == "" {
		return nil, fail(span, ErrBlankAuthor)
	}
	books, err := s.Store.FindByAuthor(ctx, author)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("result.count", len(books)))
	return books, nil
}

// ListByAuthorAndStatus is ListByAuthor restricted to one status.
func (s *BookService) ListByAuthorAndStatus(ctx context.Context, author string, status domain.BookStatus) ([]domain.Book, error) {
	author = normalizeText(author)
	ctx, span := tracer().Start(ctx, "ListByAuthorAndStatus",
		trace.WithAttributes(
			attribute.String("book.author", author),
			attribute.String("book.status", status.String()),
		),
	)
	defer span.End()

	if author == "" {
		return nil, fail(span, ErrBlankAuthor)
	}
	if !status.Valid() {
		return nil, fail(span, domain.ErrUnknownStatus)
	}
	books, err := s.Store.FindByAuthorAndStatus(ctx, author, status)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("result.count", len(books)))
	return books, nil
}

// ListByStatus returns books in status, newest insert first.
func (s *BookService) ListByStatus(ctx context.Context, status domain.BookStatus) ([]domain.Book, error) {
	ctx, span := tracer().Start(ctx, "ListByStatus",
		trace.WithAttributes(attribute.String("book.status", status.String())),
	)
	defer span.End()

	if !status.Valid() {
		return nil, fail(span, domain.ErrUnknownStatus)
	}
	books, err := s.Store.FindByStatus(ctx, status)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("result.count", len(books)))
	return books, nil
}

// StatusStats reports the size and freshness of the listing for status.
// Handlers derive a weak ETag from it.
func (s *BookService) StatusStats(ctx context.Context, status domain.BookStatus) (int64, *time.Time, error) {
	if !status.Valid() {
		return 0, nil, domain.ErrUnknownStatus
	}
	return s.Store.StatusStats(ctx, status)
}

// SearchByAuthor returns books whose author contains fragment, ignoring case.
func (s *BookService) SearchByAuthor(ctx context.Context, fragment string) ([]domain.Book, error) {
	fragment = normalizeText(fragment)
	ctx, span := tracer().Start(ctx, "SearchByAuthor",
		trace.WithAttributes(attribute.String("query", fragment)),
	)
	defer span.End()

	if fragment == "" {
		return nil, fail(span, ErrBlankQuery)
	}
	books, err := s.Store.SearchByAuthor(ctx, fragment)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("result.count", len(books)))
	return books, nil
}

// UpdateStatus loads the book, saves a copy carrying status and returns the
// stored result. A missing id yields ErrBookNotFound. Concurrent updates of
// the same id are last-writer-wins.
func (s *BookService) UpdateStatus(ctx context.Context, id uint, status domain.BookStatus) (*domain.Book, error) {
	ctx, span := tracer().Start(ctx, "UpdateStatus",
		trace.WithAttributes(
			attribute.Int64("book.id", int64(id)),
			attribute.String("book.status", status.String()),
		),
	)
	defer span.End()

	if !status.Valid() {
		return nil, fail(span, domain.ErrUnknownStatus)
	}
	current, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return nil, fail(span, notFound(err))
	}
	saved, err := s.Store.Save(ctx, current.WithStatus(status))
	if err != nil {
		return nil, fail(span, err)
	}
	statusUpdates.WithLabelValues(status.String()).Inc()
	return saved, nil
}

// normalizeText trims surrounding whitespace and composes to NFC so that
// visually identical author names compare equal.
func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// notFound maps store absence to ErrBookNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrBookNotFound
	}
	return err
}

// fail records err on span and returns it.
func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
