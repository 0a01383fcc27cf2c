package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Time is a JSON encoded unix timestamp.
type Time int64

// Now returns the current instant as a storage.Time.
func Now() Time {
	return ToTime(time.Now())
}

// AsTime returns the time as UTC so its string value doesn't depend on the local time zone.
func (t *Time) AsTime() time.Time {
	return time.Unix(int64(*t), 0).UTC()
}

// ToTime converts a time.Time to a storage.Time.
func ToTime(v time.Time) Time {
	return Time(v.Unix())
}

// UnmarshalJSON decodes JSON numbers as unix timestamps, converting float64 to int64 by rounding.
func (t *Time) UnmarshalJSON(b []byte) error {
	var i int64
	if err := json.Unmarshal(b, &i); err == nil {
		*t = Time(i)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*t = Time(int64(math.Round(f)))
	return nil
}

// dateLayout is the wire format for civil dates.
const dateLayout = "2006-01-02"

// Date is a civil date in "YYYY-MM-DD" form. The empty string means no date.
//
// ISO dates compare correctly as strings, so Date values can be ordered
// lexicographically.
type Date string

// ToDate converts a time.Time to its UTC civil date.
func ToDate(v time.Time) Date {
	return Date(v.UTC().Format(dateLayout))
}

// IsZero returns true if no date is set.
func (d Date) IsZero() bool {
	return d == ""
}

// Validate checks that the date is empty or well-formed.
func (d Date) Validate() error {
	if d == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, string(d)); err != nil {
		return fmt.Errorf("invalid date %q: %w", string(d), err)
	}
	return nil
}

// AsTime returns midnight UTC of the date. Invalid or empty dates return the
// zero time.
func (d Date) AsTime() time.Time {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return ToDate(d.AsTime().AddDate(0, 0, n))
}
