// Package repo implements the data persistence layer for book records,
// backed by GORM. This file provides repository functions for the Book model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition.
//
// Error semantics:
//   - When a book is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Ordering:
//   - Author lookups: published_date DESC, id ASC (id breaks ties).
//   - Status lookups: created_at DESC, id DESC (newest insert first).
//
// Functions:
//
//   - SaveBook(ctx, db, book) -> *domain.Book, error
//     Inserts when ID is zero, otherwise writes all columns back (upsert by id).
//
//   - GetBook(ctx, db, id) -> *domain.Book, error
//
//   - ListBooksByAuthor(ctx, db, author) -> []domain.Book, error
//
//   - ListBooksByAuthorAndStatus(ctx, db, author, status) -> []domain.Book, error
//
//   - ListBooksByStatus(ctx, db, status) -> []domain.Book, error
//
//   - SearchBooksByAuthor(ctx, db, fragment) -> []domain.Book, error
//     Case-insensitive substring match on author.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-book-records/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

const (
	orderByPublished = "published_date DESC, id ASC"
	orderByCreated   = "created_at DESC, id DESC"
)

// SaveBook persists b. A zero ID inserts a new row (the database assigns the
// id and GORM stamps CreatedAt/UpdatedAt); a non-zero ID saves every column
// back and refreshes UpdatedAt. CreatedAt is insert-only at the schema level.
func SaveBook(ctx context.Context, db *gorm.DB, b domain.Book) (*domain.Book, error) {
	tx := db.WithContext(ctx)
	var err error
	if b.ID == 0 {
		err = tx.Create(&b).Error
	} else {
		err = tx.Save(&b).Error
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBook fetches a single book by id, or ErrNotFound.
func GetBook(ctx context.Context, db *gorm.DB, id uint) (*domain.Book, error) {
	var b domain.Book
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBooksByAuthor returns books whose author equals author exactly,
// most recent publication first. Empty slice when none match.
func ListBooksByAuthor(ctx context.Context, db *gorm.DB, author string) ([]domain.Book, error) {
	out := []domain.Book{}
	err := db.WithContext(ctx).
		Where("author = ?", author).
		Order(orderByPublished).
		Find(&out).Error
	return out, err
}

// ListBooksByAuthorAndStatus narrows ListBooksByAuthor to one status.
func ListBooksByAuthorAndStatus(ctx context.Context, db *gorm.DB, author string, status domain.BookStatus) ([]domain.Book, error) {
	out := []domain.Book{}
	err := db.WithContext(ctx).
		Where("author = ? AND status = ?", author, status).
		Order(orderByPublished).
		Find(&out).Error
	return out, err
}

// ListBooksByStatus returns books in status, newest insert first.
func ListBooksByStatus(ctx context.Context, db *gorm.DB, status domain.BookStatus) ([]domain.Book, error) {
	out := []domain.Book{}
	err := db.WithContext(ctx).
		Where("status = ?", status).
		Order(orderByCreated).
		Find(&out).Error
	return out, err
}

// SearchBooksByAuthor returns books whose author contains fragment, ignoring
// case, most recent publication first. LIKE wildcards in fragment are
// matched literally.
func SearchBooksByAuthor(ctx context.Context, db *gorm.DB, fragment string) ([]domain.Book, error) {
	out := []domain.Book{}
	pattern := "%" + escapeLike(strings.ToLower(fragment)) + "%"
	err := db.WithContext(ctx).
		Where("LOWER(author) LIKE ? ESCAPE '!'", pattern).
		Order(orderByPublished).
		Find(&out).Error
	return out, err
}

// escapeLike escapes LIKE metacharacters using '!' (portable across SQLite,
// PostgreSQL and MySQL, unlike backslash).
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}
