package contracts

import "errors"

var (
	// ErrEmptyCalendar: no trading dates in the requested range
	ErrEmptyCalendar = errors.New("empty trading calendar")

	// ErrNoPricedHoldings: no holding of a period has both a buy and a sell price
	ErrNoPricedHoldings = errors.New("no priced holdings in period")

	// ErrMissingBenchmarkRecord: the benchmark has no record on a required date
	ErrMissingBenchmarkRecord = errors.New("missing benchmark record")

	ErrRecordNotFound = errors.New("record not found")

	ErrInvalidParams = errors.New("invalid parameters")
)
