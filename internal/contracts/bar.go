package contracts

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is used for keys, logs and report axes
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date in UTC
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats a trading date as YYYY-MM-DD
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses YYYY-MM-DD into a UTC date
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Bar is one (trade date, instrument) record.
// Volume == 0 means the instrument did not trade that day (suspension or a filled calendar day).
// ⭐ SSOT: 일별 시세 레코드
type Bar struct {
	Code      string    `json:"code"`
	TradeDate time.Time `json:"trade_date"`
	Open      float64   `json:"open"`
	Close     float64   `json:"close"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Volume    int64     `json:"volume"`
	PE        float64   `json:"pe"`
	PB        float64   `json:"pb"`
}

// Active reports whether the instrument traded on the bar's date
func (b Bar) Active() bool {
	return b.Volume != 0
}

// Metric returns the numeric value of field. ok is false for non-numeric fields.
func (b Bar) Metric(f Field) (float64, bool) {
	switch f {
	case FieldOpen:
		return b.Open, true
	case FieldClose:
		return b.Close, true
	case FieldHigh:
		return b.High, true
	case FieldLow:
		return b.Low, true
	case FieldVolume:
		return float64(b.Volume), true
	case FieldPE:
		return b.PE, true
	case FieldPB:
		return b.PB, true
	default:
		return 0, false
	}
}

// Field names a Bar column
type Field string

const (
	FieldCode      Field = "code"
	FieldTradeDate Field = "trade_date"
	FieldOpen      Field = "open"
	FieldClose     Field = "close"
	FieldHigh      Field = "high"
	FieldLow       Field = "low"
	FieldVolume    Field = "volume"
	FieldPE        Field = "pe"
	FieldPB        Field = "pb"
)

var allFields = []Field{
	FieldCode, FieldTradeDate, FieldOpen, FieldClose, FieldHigh,
	FieldLow, FieldVolume, FieldPE, FieldPB,
}

// AllFields lists every Bar column in storage order
func AllFields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

// Valid reports whether f is a known column
func (f Field) Valid() bool {
	for _, known := range allFields {
		if f == known {
			return true
		}
	}
	return false
}

// Rankable reports whether f can be used as the ranking metric
func (f Field) Rankable() bool {
	return f == FieldPE || f == FieldPB || f == FieldClose
}

// ParseRankField validates a ranking field name
func ParseRankField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if !f.Rankable() {
		return "", fmt.Errorf("%w: ranking field must be one of pe, pb, close (got %q)", ErrInvalidParams, s)
	}
	return f, nil
}
