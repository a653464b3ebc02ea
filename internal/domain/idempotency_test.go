package domain

import (
	"testing"
	"time"
)

func TestIdempotency_Migration_NotNull_AndUnique(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	now := time.Now().UTC()

	// --------- NOT NULL by behavior ----------
	names := []string{"id", "key", "book_id", "status", "created_at", "expires_at"}
	for _, col := range []string{"key", "book_id", "status", "expires_at"} {
		vals := []any{"x-" + col, "k-" + col, 1, 201, now, now.Add(time.Hour)}
		for i, name := range names {
			if name == col {
				vals[i] = nil
			}
		}
		err := db.Exec(`INSERT INTO idempotency ("id","key","book_id","status","created_at","expires_at")
		                VALUES (?,?,?,?,?,?)`, vals...).Error
		if err == nil {
			t.Fatalf("expected NOT NULL violation when inserting NULL into %q", col)
		}
	}

	// --------- valid insert + readback ----------
	rec := &Idempotency{
		ID:        "id-1",
		Key:       "k1",
		BookID:    42,
		Status:    201,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert valid: %v", err)
	}
	var got Idempotency
	if err := db.First(&got, "id = ?", "id-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.Key != "k1" || got.BookID != 42 || got.Status != 201 || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected row: %+v", got)
	}

	// --------- unique key ----------
	dup := &Idempotency{ID: "id-2", Key: "k1", BookID: 43, Status: 201, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected UNIQUE violation on key")
	}
}
