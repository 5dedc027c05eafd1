package contracts

import (
	"context"
	"time"
)

// Calendar supplies trading dates: ascending, deduplicated, inclusive bounds
// ⭐ SSOT: 거래일 캘린더 인터페이스
type Calendar interface {
	TradingDates(ctx context.Context, market string, start, end time.Time) ([]time.Time, error)
}

// PriceLookup is the query side used by the return accountant
type PriceLookup interface {
	Find(ctx context.Context, q Query) ([]Bar, error)
}

// BarStore is the time-series store query surface
// ⭐ SSOT: 시세 저장소 조회 인터페이스
type BarStore interface {
	PriceLookup
	// FindOne returns ErrRecordNotFound when (date, code) has no record
	FindOne(ctx context.Context, date time.Time, code string) (*Bar, error)
}

// Series is one labelled line of a report
type Series struct {
	Label  string
	Values []float64
}

// Report is what a ReportSink renders: two aligned series over one date axis
type Report struct {
	Title    string
	Subtitle string
	Dates    []time.Time
	A        Series
	B        Series
	Points   []NetValuePoint
}

// ReportSink renders a report artifact at outputPath
type ReportSink interface {
	Render(ctx context.Context, r Report, outputPath string) error
}
