package services

import "github.com/prometheus/client_golang/prometheus"

// Rejection reasons used as the "reason" label of book_rejections_total.
const (
	reasonInvalidDate  = "invalid_date"
	reasonYearTooOld   = "year_too_old"
	reasonYearInFuture = "year_in_future"
)

var (
	// booksCreated counts books persisted through Save.
	booksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "books_created_total",
			Help: "Total number of books created.",
		},
	)

	// statusUpdates counts successful status transitions by target status.
	statusUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "book_status_updates_total",
			Help: "Total number of book status updates by new status.",
		},
		[]string{"status"},
	)

	// rejections counts creation requests refused before reaching the store.
	rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "book_rejections_total",
			Help: "Total number of rejected book creation requests by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(booksCreated, statusUpdates, rejections)
}
