package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// BookStatus is the lifecycle state of a book record. The zero value is
// StatusAvailable so an omitted status defaults correctly.
type BookStatus uint8

// The fixed set of statuses.
const (
	StatusAvailable BookStatus = iota
	StatusBorrowed
	StatusReserved
	StatusMaintenance
)

// ErrUnknownStatus is returned when parsing a name outside the fixed set.
var ErrUnknownStatus = errors.New("unknown book status")

var statusNames = [...]string{
	StatusAvailable:   "AVAILABLE",
	StatusBorrowed:    "BORROWED",
	StatusReserved:    "RESERVED",
	StatusMaintenance: "MAINTENANCE",
}

// Statuses lists every valid status in declaration order.
func Statuses() []BookStatus {
	return []BookStatus{StatusAvailable, StatusBorrowed, StatusReserved, StatusMaintenance}
}

// ParseStatus maps a status name (case-insensitive, surrounding whitespace
// ignored) to its BookStatus.
func ParseStatus(s string) (BookStatus, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range statusNames {
		if n == name {
			return BookStatus(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Valid reports whether s is one of the fixed statuses.
func (s BookStatus) Valid() bool { return int(s) < len(statusNames) }

// String returns the canonical upper-case name.
func (s BookStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("BookStatus(%d)", uint8(s))
	}
	return statusNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s BookStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *BookStatus) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Value stores the status by name.
func (s BookStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(s))
	}
	return statusNames[s], nil
}

// Scan implements sql.Scanner.
func (s *BookStatus) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return fmt.Errorf("domain: cannot scan %T into BookStatus", src)
	}
}
