package contracts

import "time"

// InstrumentKind separates equities from indices
type InstrumentKind string

const (
	KindStock InstrumentKind = "stock"
	KindIndex InstrumentKind = "index"
)

// Instrument is a crawlable code
type Instrument struct {
	Code   string         `json:"code"`
	Name   string         `json:"name"`
	Market string         `json:"market"`
	Kind   InstrumentKind `json:"kind"`
	Status string         `json:"status"`
}

// FetchState is the checkpoint state of one instrument crawl
type FetchState string

const (
	FetchPending FetchState = "pending"
	FetchSuccess FetchState = "success"
	FetchEmpty   FetchState = "empty"
	FetchError   FetchState = "error"
)

// Done reports whether a resumed run may skip the instrument
func (s FetchState) Done() bool {
	return s == FetchSuccess || s == FetchEmpty
}

// FetchStatus is one row of the collector's status store
type FetchStatus struct {
	Code      string     `json:"code"`
	State     FetchState `json:"state"`
	Attempts  int        `json:"attempts"`
	Rows      int        `json:"rows"`
	LastError string     `json:"last_error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}
