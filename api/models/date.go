package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DateLayout is the YYYY-MM-DD form the remote service takes for windows.
const DateLayout = "2006-01-02"

// Date is a calendar day in UTC. The remote service writes dates either as
// YYYY-MM-DD, RFC3339 or HTTP-date (its JSON encoder's default for
// datetimes), so decoding accepts all three. Encoding always uses YYYY-MM-DD.
type Date struct {
	time.Time
}

// DateOf normalizes t to 00:00:00 UTC.
func DateOf(t time.Time) Date {
	tt := t.UTC()
	return Date{time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts any of the remote service's date forms.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, time.RFC3339, time.RFC3339Nano, http.TimeFormat, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("unrecognized date %q", s)
}

// String formats as YYYY-MM-DD.
func (d Date) String() string { return d.Format(DateLayout) }

// AddDays shifts by whole days.
func (d Date) AddDays(n int) Date { return Date{d.Time.AddDate(0, 0, n)} }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date: %w", err)
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
