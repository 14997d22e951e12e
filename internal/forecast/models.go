package forecast

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date without a time of day, encoded as "YYYY-MM-DD".
type Date struct {
	time.Time
}

// NewDate returns the date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

// After reports whether d is a later calendar day than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Record is a weather forecast as stored in the remote document store.
// Name is the key the store generated on creation; it is empty for records
// that have never been saved.
type Record struct {
	Name               string `json:"name,omitempty"`
	City               string `json:"city"`
	Date               Date   `json:"date"`
	TemperatureCelsius int    `json:"temperatureCelsius"`
	Description        string `json:"description"`
}

// IsNew reports whether the record has not been assigned a key yet.
func (r Record) IsNew() bool {
	return r.Name == ""
}

// TemperatureFahrenheit is derived from the Celsius value on read.
func (r Record) TemperatureFahrenheit() int {
	return CelsiusToFahrenheit(r.TemperatureCelsius)
}

func (r Record) String() string {
	return fmt.Sprintf("Forecast{name=%s, city=%s, date=%s, temperatureCelsius=%d, description=%s}",
		r.Name, r.City, r.Date, r.TemperatureCelsius, r.Description)
}

// CelsiusToFahrenheit converts whole degrees and truncates toward zero.
func CelsiusToFahrenheit(c int) int {
	return int(32 + float64(c)/0.5556)
}
