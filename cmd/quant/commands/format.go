package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/valuepool/internal/contracts"
	"github.com/wonny/valuepool/internal/s0_data/collector"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// JobMetadata holds the header of one CLI run
type JobMetadata struct {
	JobType string
	Tag     string
	Period  *Period // Optional
	Detail  string  // Optional
}

// Period represents a date range
type Period struct {
	StartDate string
	EndDate   string
}

// PrintJobHeader prints a formatted job header
func PrintJobHeader(meta JobMetadata) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", meta.JobType)
	PrintSeparator()

	if meta.Period != nil {
		fmt.Printf("  Period    : %s ~ %s\n", meta.Period.StartDate, meta.Period.EndDate)
	}
	if meta.Detail != "" {
		fmt.Printf("  Detail    : %s\n", meta.Detail)
	}

	PrintSeparator()
	fmt.Printf("[%s] started at %s\n", meta.Tag, time.Now().Format("2006-01-02 15:04:05"))
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintSeries prints the net value curve as a table, one row per rebalancing date
func PrintSeries(series *contracts.NetValueSeries) {
	widths := []int{10, 10, 10, 12, 12, 6}
	PrintTableHeader([]string{"DATE", "NET VALUE", "PERIOD", "CUMULATIVE", "BENCHMARK", "HELD"}, widths)
	for _, p := range series.Points {
		PrintTableRow([]string{
			contracts.DateKey(p.Date),
			fmt.Sprintf("%.4f", p.NetValue),
			fmt.Sprintf("%+.2f%%", p.PeriodReturn*100),
			fmt.Sprintf("%+.2f%%", p.CumulativeReturnPct),
			fmt.Sprintf("%+.2f%%", p.BenchmarkReturnPct),
			fmt.Sprintf("%d", p.Participants),
		}, widths)
	}
}

// PrintSeriesSummary prints the headline figures of a backtest
func PrintSeriesSummary(series *contracts.NetValueSeries, rebalances int) {
	fmt.Println()
	fmt.Println("📊 Results")
	PrintKeyValue("Rebalances", fmt.Sprintf("%d", rebalances), 16)
	PrintKeyValue("Final net value", fmt.Sprintf("%.4f", series.FinalNetValue()), 16)
	PrintKeyValue("Annualized", fmt.Sprintf("%.2f%%", series.AnnualizedReturn*100), 16)
	PrintKeyValue("Mean period", fmt.Sprintf("%.2f%%", series.Stats.MeanPeriodReturn*100), 16)
	PrintKeyValue("Stdev period", fmt.Sprintf("%.2f%%", series.Stats.StdDevPeriodReturn*100), 16)
	PrintKeyValue("Max drawdown", fmt.Sprintf("%.2f%%", series.Stats.MaxDrawdown*100), 16)
	PrintKeyValue("Win rate", fmt.Sprintf("%.1f%%", series.Stats.WinRate*100), 16)
	PrintKeyValue("Excess", fmt.Sprintf("%+.2f%%p", series.Stats.ExcessReturnPct), 16)
}

// PrintPools prints each rebalancing date with its holdings
func PrintPools(pools *contracts.Pools) {
	for _, e := range pools.Entries() {
		fmt.Printf("   %s  [%d] %s\n", e.Date, len(e.Codes), strings.Join(e.Codes, " "))
	}
}

// PrintCollectionSummary prints the outcome of a collector run
func PrintCollectionSummary(s *collector.Summary) {
	fmt.Println()
	PrintKeyValue("Job", s.Job, 10)
	PrintKeyValue("Total", fmt.Sprintf("%d", s.Total), 10)
	PrintKeyValue("Success", fmt.Sprintf("%d", s.Success), 10)
	PrintKeyValue("Empty", fmt.Sprintf("%d", s.Empty), 10)
	PrintKeyValue("Skipped", fmt.Sprintf("%d", s.Skipped), 10)
	PrintKeyValue("Failed", fmt.Sprintf("%d", s.Failed), 10)
	PrintKeyValue("Rows", fmt.Sprintf("%d", s.Rows), 10)
	PrintKeyValue("Duration", s.Duration.Round(time.Millisecond).String(), 10)

	if s.Failed > 0 {
		fmt.Println()
		for _, r := range s.Results {
			if r.Error != nil {
				PrintError(fmt.Sprintf("%s: %v", r.Code, r.Error))
			}
		}
	}
}
