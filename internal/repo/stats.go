// Package repo implements the data persistence layer for book records,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (weak ETags) on the status listing endpoint.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-book-records/internal/domain"
)

// StatusStats returns the number of books in status and the greatest
// UpdatedAt among them. When no book has that status, the count is 0 and
// maxUpdatedAt is nil.
//
// Any status change touches UpdatedAt on the moved row, so the pair changes
// whenever the listing for status would.
func StatusStats(ctx context.Context, db *gorm.DB, status domain.BookStatus) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Book{}).Where("status = ?", status)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
