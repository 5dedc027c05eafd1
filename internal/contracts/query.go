package contracts

import (
	"fmt"
	"strings"
	"time"
)

// Direction is a sort order
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection accepts asc/desc (any case), defaulting to ascending for ""
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	default:
		return "", fmt.Errorf("%w: direction must be asc or desc (got %q)", ErrInvalidParams, s)
	}
}

// VolumeFilter restricts records by trading activity
type VolumeFilter int

const (
	VolumeAny       VolumeFilter = iota
	VolumeActive                 // volume != 0
	VolumeSuspended              // volume == 0
)

func (v VolumeFilter) String() string {
	switch v {
	case VolumeActive:
		return "active"
	case VolumeSuspended:
		return "suspended"
	default:
		return "any"
	}
}

// Match applies the filter to a volume
func (v VolumeFilter) Match(volume int64) bool {
	switch v {
	case VolumeActive:
		return volume != 0
	case VolumeSuspended:
		return volume == 0
	default:
		return true
	}
}

// Range is an open interval (Lo, Hi)
type Range struct {
	Lo float64 `json:"lo" yaml:"lo"`
	Hi float64 `json:"hi" yaml:"hi"`
}

// Contains reports lo < v < hi
func (r Range) Contains(v float64) bool {
	return v > r.Lo && v < r.Hi
}

func (r Range) Validate() error {
	if r.Lo >= r.Hi {
		return fmt.Errorf("%w: range lower bound %v must be below upper bound %v", ErrInvalidParams, r.Lo, r.Hi)
	}
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("(%g, %g)", r.Lo, r.Hi)
}

// Query is the store query surface used by the selector and the accountant.
// Zero values disable a filter, except Codes: nil means no membership filter,
// a non-nil empty slice matches nothing.
type Query struct {
	TradeDate   time.Time
	Metric      Field
	MetricRange *Range
	Volume      VolumeFilter
	Codes       []string
	Fields      []Field // projection, nil = all
	SortBy      Field
	Direction   Direction
	Limit       int
}

// Validate rejects unknown columns and incomplete metric filters
func (q Query) Validate() error {
	if q.MetricRange != nil && !q.Metric.Valid() {
		return fmt.Errorf("%w: metric range without a valid metric field", ErrInvalidParams)
	}
	if q.SortBy != "" && !q.SortBy.Valid() {
		return fmt.Errorf("%w: unknown sort field %q", ErrInvalidParams, q.SortBy)
	}
	for _, f := range q.Fields {
		if !f.Valid() {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidParams, f)
		}
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidParams)
	}
	return nil
}

// Matches applies every filter of q except sort, limit and projection
func (q Query) Matches(b Bar) bool {
	if !q.TradeDate.IsZero() && !Day(b.TradeDate).Equal(Day(q.TradeDate)) {
		return false
	}
	if !q.Volume.Match(b.Volume) {
		return false
	}
	if q.MetricRange != nil {
		v, ok := b.Metric(q.Metric)
		if !ok || !q.MetricRange.Contains(v) {
			return false
		}
	}
	if q.Codes != nil {
		found := false
		for _, c := range q.Codes {
			if c == b.Code {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
