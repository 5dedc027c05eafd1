package report

import (
	"context"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/wonny/valuepool/internal/contracts"
)

// ParquetSink exports the net value points as a Parquet file
type ParquetSink struct{}

func (ParquetSink) Extension() string { return ".parquet" }

func (ParquetSink) Render(_ context.Context, r contracts.Report, outputPath string) error {
	if err := ensureDir(outputPath); err != nil {
		return err
	}
	if err := parquet.WriteFile(outputPath, records(r)); err != nil {
		return fmt.Errorf("write parquet: %w", err)
	}
	return nil
}
