package report

import (
	"context"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/wonny/valuepool/internal/contracts"
)

// CSVSink exports the net value points as CSV
type CSVSink struct{}

func (CSVSink) Extension() string { return ".csv" }

func (CSVSink) Render(_ context.Context, r contracts.Report, outputPath string) error {
	if err := ensureDir(outputPath); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	rows := records(r)
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
