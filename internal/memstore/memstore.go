// Package memstore is an in-process book store backed by hashicorp/go-memdb.
// It is selected with DB_DRIVER=memory and mirrors the query semantics of the
// GORM repository (ordering, exact author match, case-insensitive search) so
// the service and HTTP layers behave the same against either backend.
package memstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/tbourn/go-book-records/internal/clock"
	"github.com/tbourn/go-book-records/internal/domain"
)

const (
	tableBook        = "book"
	tableIdempotency = "idempotency"
)

var (
	// ErrNotFound aliases gorm.ErrRecordNotFound so callers can test for
	// absence the same way for both stores.
	ErrNotFound = gorm.ErrRecordNotFound

	// ErrDuplicate indicates a live idempotency record already holds the key.
	ErrDuplicate = errors.New("duplicate")
)

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableBook: {
				Name: tableBook,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.UintFieldIndex{Field: "ID"},
					},
					"author": {
						Name:         "author",
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Author"},
					},
					"status": {
						Name:    "status",
						Indexer: &memdb.UintFieldIndex{Field: "Status"},
					},
					"author_status": {
						Name:         "author_status",
						AllowMissing: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Author"},
								&memdb.UintFieldIndex{Field: "Status"},
							},
						},
					},
				},
			},
			tableIdempotency: {
				Name: tableIdempotency,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Key"},
					},
				},
			},
		},
	}
}

// Store keeps books and idempotency records in memory. It is safe for
// concurrent use: memdb serialises writers and readers see snapshots.
type Store struct {
	db    *memdb.MemDB
	clock clock.Clock

	// lastID is only touched inside write transactions.
	lastID uint
}

// New builds an empty store. A nil clk uses the system clock.
func New(clk clock.Clock) (*Store, error) {
	s := schema()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validating memdb schema: %w", err)
	}
	db, err := memdb.NewMemDB(s)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	return &Store{db: db, clock: clock.Or(clk)}, nil
}

// -- Books --

// Save inserts b when its ID is zero and otherwise replaces the stored row
// with the same ID (upsert). CreatedAt is kept from the existing row;
// UpdatedAt is always refreshed.
func (s *Store) Save(ctx context.Context, b domain.Book) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := s.db.Txn(true)
	defer txn.Abort()

	now := s.clock.Now()
	if b.ID == 0 {
		s.lastID++
		b.ID = s.lastID
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
	} else {
		raw, err := txn.First(tableBook, "id", b.ID)
		if err != nil {
			return nil, fmt.Errorf("saving book: %w", err)
		}
		if raw != nil {
			b.CreatedAt = raw.(*domain.Book).CreatedAt
		} else if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.ID > s.lastID {
			s.lastID = b.ID
		}
	}
	b.UpdatedAt = now

	row := b
	if err := txn.Insert(tableBook, &row); err != nil {
		return nil, fmt.Errorf("saving book: %w", err)
	}
	txn.Commit()
	return &b, nil
}

// FindByID returns the book with id or ErrNotFound.
func (s *Store) FindByID(ctx context.Context, id uint) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableBook, "id", id)
	if err != nil {
		return nil, fmt.Errorf("searching by ID: %w", err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	b := *raw.(*domain.Book)
	return &b, nil
}

// FindByAuthor returns books whose author equals author exactly, most recent
// publication first, ties by id ascending.
func (s *Store) FindByAuthor(ctx context.Context, author string) ([]domain.Book, error) {
	out, err := s.collect(ctx, "author", author)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, byPublishedDesc)
	return out, nil
}

// FindByAuthorAndStatus narrows FindByAuthor to one status.
func (s *Store) FindByAuthorAndStatus(ctx context.Context, author string, status domain.BookStatus) ([]domain.Book, error) {
	out, err := s.collect(ctx, "author_status", author, status)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, byPublishedDesc)
	return out, nil
}

// FindByStatus returns books in status, newest insert first, ties by id
// descending.
func (s *Store) FindByStatus(ctx context.Context, status domain.BookStatus) ([]domain.Book, error) {
	out, err := s.collect(ctx, "status", status)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, byCreatedDesc)
	return out, nil
}

// SearchByAuthor returns books whose author contains fragment under Unicode
// case folding, most recent publication first.
func (s *Store) SearchByAuthor(ctx context.Context, fragment string) ([]domain.Book, error) {
	all, err := s.collect(ctx, "id")
	if err != nil {
		return nil, err
	}
	fold := cases.Fold()
	needle := fold.String(fragment)
	out := []domain.Book{}
	for _, b := range all {
		if strings.Contains(fold.String(b.Author), needle) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, byPublishedDesc)
	return out, nil
}

// StatusStats returns the number of books in status and their greatest
// UpdatedAt (nil when there are none).
func (s *Store) StatusStats(ctx context.Context, status domain.BookStatus) (int64, *time.Time, error) {
	books, err := s.collect(ctx, "status", status)
	if err != nil {
		return 0, nil, err
	}
	if len(books) == 0 {
		return 0, nil, nil
	}
	latest := books[0].UpdatedAt
	for _, b := range books[1:] {
		if b.UpdatedAt.After(latest) {
			latest = b.UpdatedAt
		}
	}
	return int64(len(books)), &latest, nil
}

func (s *Store) collect(ctx context.Context, index string, args ...any) ([]domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableBook, index, args...)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	out := []domain.Book{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		out = append(out, *obj.(*domain.Book))
	}
	return out, nil
}

func byPublishedDesc(a, b domain.Book) int {
	if a.PublishedDate != b.PublishedDate {
		if a.PublishedDate.Before(b.PublishedDate) {
			return 1
		}
		return -1
	}
	return cmp.Compare(a.ID, b.ID)
}

func byCreatedDesc(a, b domain.Book) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// -- Idempotency --

// GetIdempotency returns the live record for key or ErrNotFound.
func (s *Store) GetIdempotency(ctx context.Context, key string, now time.Time) (*domain.Idempotency, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableIdempotency, "id", key)
	if err != nil {
		return nil, fmt.Errorf("getting idempotency record: %w", err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	rec := *raw.(*domain.Idempotency)
	if !rec.ExpiresAt.After(now) {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// CreateIdempotency stores a record for key valid for ttl. A live record for
// the same key yields ErrDuplicate; an expired one is replaced.
func (s *Store) CreateIdempotency(ctx context.Context, key string, bookID uint, status int, ttl time.Duration) (*domain.Idempotency, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := s.db.Txn(true)
	defer txn.Abort()

	now := s.clock.Now()
	raw, err := txn.First(tableIdempotency, "id", key)
	if err != nil {
		return nil, fmt.Errorf("creating idempotency record: %w", err)
	}
	if raw != nil && raw.(*domain.Idempotency).ExpiresAt.After(now) {
		return nil, ErrDuplicate
	}

	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		Key:       key,
		BookID:    bookID,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	row := *rec
	if err := txn.Insert(tableIdempotency, &row); err != nil {
		return nil, fmt.Errorf("creating idempotency record: %w", err)
	}
	txn.Commit()
	return rec, nil
}
