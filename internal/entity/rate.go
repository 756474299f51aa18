package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateFormat is used both in CNB query strings and in cache keys.
const DateFormat = "02.01.2006"

// DomesticCurrency is the pivot currency; it is never fetched.
const DomesticCurrency = "CZK"

// Day truncates t to its calendar date, keeping the date as seen in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a dd.mm.yyyy string.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, s, time.UTC)
}

// DaysBetween returns |a - b| in whole days. Both must be Day values.
func DaysBetween(a, b time.Time) int {
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}

// CacheKey joins the formatted day and the uppercase currency code.
func CacheKey(day time.Time, currency string) string {
	return day.Format(DateFormat) + currency
}

type Outcome int

const (
	OutcomeFresh Outcome = iota
	OutcomeCached
	OutcomeDegraded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFresh:
		return "fresh"
	case OutcomeCached:
		return "cached"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// RateTuple is a resolved rate for Amount units of a currency.
type RateTuple struct {
	Rate      float64   `json:"rate"`
	Amount    float64   `json:"amount"`
	Date      time.Time `json:"date"`
	FromCache bool      `json:"from_cache"`
	Degraded  bool      `json:"degraded"`
}

func (t RateTuple) Outcome() Outcome {
	switch {
	case t.Degraded:
		return OutcomeDegraded
	case t.FromCache:
		return OutcomeCached
	default:
		return OutcomeFresh
	}
}

type CacheEntry struct {
	Rate   float64
	Amount float64
}

// FallbackEntry is the last known good rate for a currency. It is encoded as
// a [rate, amount, "dd.mm.yyyy"] array.
type FallbackEntry struct {
	Rate   float64
	Amount float64
	Date   time.Time
}

func (e FallbackEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Rate, e.Amount, e.Date.Format(DateFormat)})
}

func (e *FallbackEntry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("fallback entry: expected 3 elements, got %d", len(raw))
	}
	var dateStr string
	if err := json.Unmarshal(raw[0], &e.Rate); err != nil {
		return fmt.Errorf("fallback entry rate: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Amount); err != nil {
		return fmt.Errorf("fallback entry amount: %w", err)
	}
	if err := json.Unmarshal(raw[2], &dateStr); err != nil {
		return fmt.Errorf("fallback entry date: %w", err)
	}
	date, err := ParseDay(dateStr)
	if err != nil {
		return fmt.Errorf("fallback entry date: %w", err)
	}
	e.Date = date
	return nil
}
