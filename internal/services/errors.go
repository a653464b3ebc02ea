// Package services defines the business logic for book records.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Date conversion failures are not redeclared here: they come from the
// calendar package and all match calendar.ErrInvalidDate.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrBlankAuthor is returned when an author lookup is empty after trimming.
	ErrBlankAuthor = errors.New("author must not be blank")

	// ErrBlankQuery is returned when an author search fragment is empty after
	// trimming.
	ErrBlankQuery = errors.New("search query must not be blank")

	// ErrYearTooOld is returned when the converted publication year is 1000
	// or earlier.
	ErrYearTooOld = errors.New("published year must be after 1000")

	// ErrYearInFuture is returned when the converted publication year is
	// later than the current calendar year.
	ErrYearInFuture = errors.New("published year must not be in the future")

	// ErrBookNotFound indicates that the referenced book id does not exist.
	ErrBookNotFound = errors.New("book not found")
)
