package memstore

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/wonny/valuepool/internal/contracts"
)

// csvBar is the on-disk row: code,trade_date,open,close,high,low,volume,pe,pb
type csvBar struct {
	Code      string  `csv:"code"`
	TradeDate string  `csv:"trade_date"`
	Open      float64 `csv:"open"`
	Close     float64 `csv:"close"`
	High      float64 `csv:"high"`
	Low       float64 `csv:"low"`
	Volume    int64   `csv:"volume"`
	PE        float64 `csv:"pe"`
	PB        float64 `csv:"pb"`
}

// ReadCSV parses bars with a header row
func ReadCSV(r io.Reader) ([]contracts.Bar, error) {
	var rows []*csvBar
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse bars csv: %w", err)
	}

	bars := make([]contracts.Bar, 0, len(rows))
	for i, row := range rows {
		d, err := contracts.ParseDate(row.TradeDate)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		bars = append(bars, contracts.Bar{
			Code:      row.Code,
			TradeDate: d,
			Open:      row.Open,
			Close:     row.Close,
			High:      row.High,
			Low:       row.Low,
			Volume:    row.Volume,
			PE:        row.PE,
			PB:        row.PB,
		})
	}
	return bars, nil
}

// WriteCSV writes bars in the ReadCSV format
func WriteCSV(w io.Writer, bars []contracts.Bar) error {
	rows := make([]*csvBar, len(bars))
	for i, b := range bars {
		rows[i] = &csvBar{
			Code:      b.Code,
			TradeDate: contracts.DateKey(b.TradeDate),
			Open:      b.Open,
			Close:     b.Close,
			High:      b.High,
			Low:       b.Low,
			Volume:    b.Volume,
			PE:        b.PE,
			PB:        b.PB,
		}
	}
	return gocsv.Marshal(rows, w)
}

// LoadFile reads a CSV file into a new Store
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	bars, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return New(bars...), nil
}
