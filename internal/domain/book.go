// Package domain defines the persistence models for book records. These
// types are mapped with GORM and shared by the repository, in-memory store,
// service and HTTP layers.
package domain

import (
	"time"

	"github.com/tbourn/go-book-records/internal/calendar"
)

// Book is a stored book record.
//
// Fields:
//   - ID: store-assigned identifier, stable for the record's lifetime.
//   - Title / Author: trimmed, 1–255 characters.
//   - PublishedDate: proleptic Gregorian date (never stored in Buddhist form).
//   - Status: the only field mutable after creation.
//   - CreatedAt: set once at insert.
//   - UpdatedAt: refreshed on every save.
//
// Books are treated as values: status changes go through WithStatus and the
// resulting copy is saved back (upsert by ID).
type Book struct {
	ID            uint          `json:"id"             gorm:"primaryKey;autoIncrement"`
	Title         string        `json:"title"          gorm:"type:varchar(255);not null"`
	Author        string        `json:"author"         gorm:"type:varchar(255);not null;index:idx_author"`
	PublishedDate calendar.Date `json:"published_date" gorm:"type:date;not null;index:idx_published_date"`
	Status        BookStatus    `json:"status"         gorm:"type:varchar(16);not null;index:idx_status;check:status IN ('AVAILABLE','BORROWED','RESERVED','MAINTENANCE')"`
	CreatedAt     time.Time     `json:"created_at"     gorm:"<-:create;not null;index:idx_created_at"`
	UpdatedAt     time.Time     `json:"updated_at"     gorm:"not null"`
}

// TableName returns the database table name for Book.
func (Book) TableName() string { return "books" }

// WithStatus returns a copy of b carrying status. The receiver is untouched.
func (b Book) WithStatus(status BookStatus) Book {
	b.Status = status
	return b
}

// BookCreationRequest is the transient input for creating a book. Title and
// Author are raw (untrimmed) and PublishedDate is a Buddhist Era
// "YYYY-MM-DD" string. A zero Status means StatusAvailable.
type BookCreationRequest struct {
	Title         string
	Author        string
	PublishedDate string
	Status        BookStatus
}
