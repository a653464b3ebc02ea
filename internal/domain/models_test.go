package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-book-records/internal/calendar"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestTableNames(t *testing.T) {
	if (Book{}).TableName() != "books" {
		t.Fatalf("Book.TableName() = %q; want %q", (Book{}).TableName(), "books")
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("Idempotency.TableName() = %q", (Idempotency{}).TableName())
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]BookStatus{
		"AVAILABLE":     StatusAvailable,
		"borrowed":      StatusBorrowed,
		"  Reserved  ":  StatusReserved,
		"MAINTENANCE":   StatusMaintenance,
	}
	for in, want := range cases {
		got, err := ParseStatus(in)
		if err != nil || got != want {
			t.Errorf("ParseStatus(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "LOST", "AVAILABLE!"} {
		if _, err := ParseStatus(bad); !errors.Is(err, ErrUnknownStatus) {
			t.Errorf("ParseStatus(%q) err = %v; want ErrUnknownStatus", bad, err)
		}
	}
}

func TestBookStatus_ZeroIsAvailable_AndCodecs(t *testing.T) {
	var s BookStatus
	if s != StatusAvailable {
		t.Fatalf("zero status = %v; want AVAILABLE", s)
	}
	if !StatusMaintenance.Valid() || BookStatus(9).Valid() {
		t.Fatalf("Valid() bounds wrong")
	}
	if BookStatus(9).String() != "BookStatus(9)" {
		t.Fatalf("String() for invalid = %q", BookStatus(9).String())
	}
	if _, err := BookStatus(9).MarshalText(); err == nil {
		t.Fatalf("MarshalText of invalid status should fail")
	}

	b, err := json.Marshal(map[string]BookStatus{"s": StatusReserved})
	if err != nil || string(b) != `{"s":"RESERVED"}` {
		t.Fatalf("json = %s, %v", b, err)
	}
	var back map[string]BookStatus
	if err := json.Unmarshal([]byte(`{"s":"borrowed"}`), &back); err != nil || back["s"] != StatusBorrowed {
		t.Fatalf("unmarshal = %v, %v", back, err)
	}
	if err := json.Unmarshal([]byte(`{"s":"LOST"}`), &back); err == nil {
		t.Fatalf("unmarshal of unknown status should fail")
	}

	var scanned BookStatus
	if err := scanned.Scan([]byte("MAINTENANCE")); err != nil || scanned != StatusMaintenance {
		t.Fatalf("Scan = %v, %v", scanned, err)
	}
	if err := scanned.Scan(3); err == nil {
		t.Fatalf("Scan(int) should fail")
	}
	if len(Statuses()) != 4 {
		t.Fatalf("Statuses() = %v", Statuses())
	}
}

func TestBook_WithStatus_CopiesWithoutMutating(t *testing.T) {
	orig := Book{ID: 7, Title: "T", Author: "A", Status: StatusAvailable}
	upd := orig.WithStatus(StatusBorrowed)
	if orig.Status != StatusAvailable {
		t.Fatalf("receiver mutated: %v", orig.Status)
	}
	if upd.Status != StatusBorrowed || upd.ID != 7 || upd.Title != "T" || upd.Author != "A" {
		t.Fatalf("unexpected copy: %+v", upd)
	}
}

func TestMigrations_Indexes_RoundTrip_AndCheck(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Book{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, idx := range []string{"idx_author", "idx_published_date", "idx_status", "idx_created_at"} {
		if !m.HasIndex(&Book{}, idx) {
			t.Fatalf("expected index %s on books", idx)
		}
	}
	if !m.HasIndex(&Idempotency{}, "ux_idempotency_key") {
		t.Fatalf("expected unique index ux_idempotency_key")
	}

	pd := calendar.Date{Year: 1925, Month: time.April, Day: 10}
	b := Book{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", PublishedDate: pd, Status: StatusReserved}
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.ID == 0 || b.CreatedAt.IsZero() || b.UpdatedAt.IsZero() {
		t.Fatalf("expected id and timestamps to be set: %+v", b)
	}

	var got Book
	if err := db.First(&got, b.ID).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.PublishedDate != pd || got.Status != StatusReserved || got.Author != b.Author {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// The check constraint rejects names outside the fixed set.
	if err := db.Exec("INSERT INTO books (title, author, published_date, status, created_at, updated_at) VALUES ('x','y','2000-01-01','LOST',?,?)",
		time.Now(), time.Now()).Error; err == nil {
		t.Fatalf("expected check constraint violation for unknown status")
	}
}
