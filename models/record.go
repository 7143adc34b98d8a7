package models

import (
	"fmt"
	"strings"
	"time"
)

// RecordKind discriminates the two record variants.
type RecordKind string

const (
	RecordKindCatch RecordKind = "catch"
	RecordKindSell  RecordKind = "sell"
)

// TimestampLayout is the ISO-8601 local date-time stored in records.timestamp.
const TimestampLayout = "2006-01-02T15:04:05"

// timestampMinuteLayout is accepted on input only; older exports dropped zero seconds.
const timestampMinuteLayout = "2006-01-02T15:04"

// Record is a logged catch or sale. Exactly one of Catch and Sell is set,
// matching Kind. The base columns live in `records`; the detail lives in
// `catches` or `sells` keyed by the same record_id.
type Record struct {
	ID        int64        `db:"record_id" json:"record_id"`
	UserID    int64        `db:"user_id" json:"user_id"`
	Kind      RecordKind   `json:"kind"`
	Weight    float64      `db:"weight" json:"weight"`
	Timestamp time.Time    `db:"timestamp" json:"timestamp"`
	Catch     *CatchDetail `json:"catch,omitempty"`
	Sell      *SellDetail  `json:"sell,omitempty"`
}

// CatchDetail is the `catches` row of a catch record.
type CatchDetail struct {
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
}

// SellDetail is the `sells` row of a sell record.
type SellDetail struct {
	Revenue float64 `db:"revenue" json:"revenue"`
}

// NewCatch builds an unsaved catch record.
func NewCatch(ts time.Time, weight, lat, lon float64) Record {
	return Record{
		Kind:      RecordKindCatch,
		Weight:    weight,
		Timestamp: ts,
		Catch:     &CatchDetail{Latitude: lat, Longitude: lon},
	}
}

// NewSell builds an unsaved sell record.
func NewSell(ts time.Time, weight, revenue float64) Record {
	return Record{
		Kind:      RecordKindSell,
		Weight:    weight,
		Timestamp: ts,
		Sell:      &SellDetail{Revenue: revenue},
	}
}

// FormatTimestamp renders t the way it is stored. Sub-second precision and
// the zone are dropped; timestamps are wall-clock values.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a stored or user-supplied timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(timestampMinuteLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, Invalid("timestamp", "%q is not of the form %s", s, TimestampLayout)
}

// NormalizeTimestamp truncates t to the stored precision.
func NormalizeTimestamp(t time.Time) time.Time {
	t = t.Truncate(time.Second)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// Validate checks that the variant fields agree with Kind.
func (r *Record) Validate() error {
	switch r.Kind {
	case RecordKindCatch:
		if r.Catch == nil || r.Sell != nil {
			return fmt.Errorf("catch record %d: %w", r.ID, ErrWrongRecordKind)
		}
	case RecordKindSell:
		if r.Sell == nil || r.Catch != nil {
			return fmt.Errorf("sell record %d: %w", r.ID, ErrWrongRecordKind)
		}
	default:
		return Invalid("kind", "unknown record kind %q", r.Kind)
	}
	return nil
}
