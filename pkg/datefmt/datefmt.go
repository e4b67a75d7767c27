// Package datefmt converts calendar dates between the DD-MM-YYYY form used by
// API clients and the YYYY-MM-DD form used in storage. Both directions accept
// either form, so converting an already-converted value is a no-op.
package datefmt

import (
	"errors"
	"strings"
	"time"
)

const (
	// DisplayLayout is the boundary format.
	DisplayLayout = "02-01-2006"
	// StorageLayout is the persisted format.
	StorageLayout = "2006-01-02"
)

// ErrInvalidDate is returned when a value matches none of the accepted layouts.
var ErrInvalidDate = errors.New("invalid date")

var layouts = []string{
	StorageLayout,
	DisplayLayout,
	"02/01/2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Parse reads a date in any accepted layout. The result is midnight UTC.
func Parse(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// Valid reports whether value parses as a date.
func Valid(value string) bool {
	_, err := Parse(value)
	return err == nil
}

// ToStorage converts value to YYYY-MM-DD.
func ToStorage(value string) (string, error) {
	t, err := Parse(value)
	if err != nil {
		return "", err
	}
	return t.Format(StorageLayout), nil
}

// ToDisplay converts value to DD-MM-YYYY.
func ToDisplay(value string) (string, error) {
	t, err := Parse(value)
	if err != nil {
		return "", err
	}
	return t.Format(DisplayLayout), nil
}

// Display formats t for API responses. The zero time renders as "".
func Display(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DisplayLayout)
}

// DisplayPtr is Display for optional dates.
func DisplayPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return Display(*t)
}
