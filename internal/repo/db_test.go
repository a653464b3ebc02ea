package repo

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-book-records/internal/calendar"
	"github.com/tbourn/go-book-records/internal/config"
	"github.com/tbourn/go-book-records/internal/domain"
)

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "books.db")

	db, err := OpenSQLite(path)
	require.Error(t, err)
	assert.Nil(t, db)
}

func TestOpenSQLite_Tuning(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	pragmas := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
	}
	for _, p := range pragmas {
		var got string
		require.NoError(t, db.Raw("PRAGMA "+p.name).Row().Scan(&got), p.name)
		assert.Equal(t, p.want, got, "PRAGMA %s", p.name)
	}
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestAutoMigrate_BookRoundTrip(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	for _, model := range []any{&domain.Book{}, &domain.Idempotency{}} {
		assert.True(t, db.Migrator().HasTable(model), "table for %T", model)
	}

	// Leap day exercises the calendar.Date scanner.
	in := domain.Book{
		Title:         "Khun Chang Khun Phaen",
		Author:        "Anonymous",
		PublishedDate: calendar.Date{Year: 2024, Month: time.February, Day: 29},
		Status:        domain.StatusReserved,
	}
	require.NoError(t, db.Create(&in).Error)

	var out domain.Book
	require.NoError(t, db.First(&out, in.ID).Error)
	assert.Equal(t, in.PublishedDate, out.PublishedDate)
	assert.Equal(t, domain.StatusReserved, out.Status)
	assert.Equal(t, in.Title, out.Title)
}

func TestOpen(t *testing.T) {
	t.Run("sqlite with tracing", func(t *testing.T) {
		db, err := Open(config.DBConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "b.db"), Trace: true})
		require.NoError(t, err)
		if sqlDB, err := db.DB(); err == nil {
			t.Cleanup(func() { _ = sqlDB.Close() })
		}
		m := db.Migrator()
		assert.True(t, m.HasTable(&domain.Book{}))
		assert.True(t, m.HasTable(&domain.Idempotency{}))
		assert.True(t, m.HasIndex(&domain.Book{}, "idx_author"))
	})

	for _, drv := range []string{"oracle", config.DriverMemory} {
		t.Run("unsupported "+drv, func(t *testing.T) {
			db, err := Open(config.DBConfig{Driver: drv})
			assert.Nil(t, db)
			assert.ErrorContains(t, err, "unsupported driver")
		})
	}
}

func TestBinaryAuthorColumn(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	// SQLite compares with BINARY already; the MySQL DDL must not run here.
	require.NoError(t, binaryAuthorColumn(db))
	require.NoError(t, db.Create(&domain.Book{Title: "T", Author: "Jane Doe",
		PublishedDate: calendar.Date{Year: 2020, Month: time.January, Day: 1}, Status: domain.StatusAvailable}).Error)
	var n int64
	require.NoError(t, db.Model(&domain.Book{}).Where("author = ?", "jane doe").Count(&n).Error)
	assert.Zero(t, n, "author match must be case-sensitive")

	assert.Contains(t, mysqlBinaryAuthorDDL, "COLLATE utf8mb4_bin")
	assert.True(t, strings.HasPrefix(mysqlBinaryAuthorDDL, "ALTER TABLE books MODIFY author varchar(255)"))
}
