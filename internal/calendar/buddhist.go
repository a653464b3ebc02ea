// Package calendar converts Buddhist Era date strings into proleptic
// Gregorian calendar dates.
//
// The Buddhist Era (B.E.) shares the Gregorian month/day structure but its
// year numbering leads the Common Era by exactly 543 years. Conversion is a
// fixed offset applied to the year only; there is no cutover-month handling.
//
// Input shape is the literal text "YYYY-MM-DD" (4-digit year, 2-digit month,
// 2-digit day). ToGregorian re-validates that shape on its own and never
// assumes an upstream regex already checked it.
//
// All failures match ErrInvalidDate via errors.Is, and additionally one of the
// kind-specific sentinels (ErrInvalidFormat, ErrInvalidMonth, ErrInvalidDay,
// ErrInvalidCalendarDate).
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// BuddhistEraOffset is the number of years the Buddhist Era leads the
// Gregorian calendar.
const BuddhistEraOffset = 543

// Date conversion errors.
var (
	// ErrInvalidDate is the umbrella class every conversion failure matches.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidFormat indicates the input is not three hyphen-separated
	// numeric segments of widths 4, 2 and 2.
	ErrInvalidFormat = errors.New("invalid date format, expected yyyy-MM-dd")

	// ErrInvalidMonth indicates a month outside 1..12.
	ErrInvalidMonth = errors.New("invalid month, month must be between 1 and 12")

	// ErrInvalidDay indicates a day outside 1..31.
	ErrInvalidDay = errors.New("invalid day, day must be between 1 and 31")

	// ErrInvalidCalendarDate indicates the day does not exist in that
	// month/year of the Gregorian calendar (e.g. Feb 29 of a common year).
	ErrInvalidCalendarDate = errors.New("the date does not exist in the Gregorian calendar")
)

var (
	yearRE = regexp.MustCompile(`^\d{4}$`)
	twoRE  = regexp.MustCompile(`^\d{2}$`)
)

// ToGregorian parses a Buddhist Era date in "YYYY-MM-DD" form and returns the
// equivalent proleptic Gregorian Date.
//
// Validation order:
//  1. shape: exactly 3 segments matching \d{4}, \d{2}, \d{2}
//  2. month in 1..12
//  3. day in 1..31 (coarse)
//  4. year - 543 and exact calendar legality (leap years included)
//
// It is a pure function of its input.
func ToGregorian(input string) (Date, error) {
	parts := strings.Split(input, "-")
	if len(parts) != 3 ||
		!yearRE.MatchString(parts[0]) ||
		!twoRE.MatchString(parts[1]) ||
		!twoRE.MatchString(parts[2]) {
		return Date{}, fail(ErrInvalidFormat)
	}

	buddhistYear, err1 := strconv.ParseUint(parts[0], 10, 16)
	month, err2 := strconv.ParseUint(parts[1], 10, 8)
	day, err3 := strconv.ParseUint(parts[2], 10, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return Date{}, fail(ErrInvalidFormat)
	}

	if month < 1 || month > 12 {
		return Date{}, fail(ErrInvalidMonth)
	}
	if day < 1 || day > 31 {
		return Date{}, fail(ErrInvalidDay)
	}

	d, ok := NewDate(int(buddhistYear)-BuddhistEraOffset, time.Month(month), int(day))
	if !ok {
		return Date{}, fail(ErrInvalidCalendarDate)
	}
	return d, nil
}

// IsLeapYear reports whether year is a leap year in the proleptic Gregorian
// calendar.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysIn returns the number of days in month of year.
func DaysIn(year int, month time.Month) int {
	switch month {
	case time.February:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

func fail(kind error) error {
	return fmt.Errorf("%w: %w", ErrInvalidDate, kind)
}
