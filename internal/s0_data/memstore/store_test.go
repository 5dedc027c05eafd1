package memstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuepool/internal/contracts"
)

func day(s string) time.Time {
	t, _ := contracts.ParseDate(s)
	return t
}

func sample() *Store {
	return New(
		contracts.Bar{Code: "A", TradeDate: day("2024-01-02"), Close: 10, PE: 2, Volume: 100},
		contracts.Bar{Code: "B", TradeDate: day("2024-01-02"), Close: 20, PE: 3, Volume: 100},
		contracts.Bar{Code: "C", TradeDate: day("2024-01-02"), Close: 30, PE: 12, Volume: 100},
		contracts.Bar{Code: "D", TradeDate: day("2024-01-02"), Close: 40, PE: 3, Volume: 0},
		contracts.Bar{Code: "A", TradeDate: day("2024-01-03"), Close: 11, PE: 2.2, Volume: 100},
	)
}

func codes(bars []contracts.Bar) []string {
	out := make([]string, len(bars))
	for i, b := range bars {
		out[i] = b.Code
	}
	return out
}

func TestStore_FindRanked(t *testing.T) {
	bars, err := sample().Find(context.Background(), contracts.Query{
		TradeDate:   day("2024-01-02"),
		Metric:      contracts.FieldPE,
		MetricRange: &contracts.Range{Lo: 0, Hi: 10},
		Volume:      contracts.VolumeActive,
		SortBy:      contracts.FieldPE,
		Direction:   contracts.Ascending,
		Limit:       5,
		Fields:      []contracts.Field{contracts.FieldCode},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, codes(bars))
	assert.Equal(t, 0.0, bars[0].Close, "projection drops unrequested fields")
}

func TestStore_FindDescendingTieBreaksByCode(t *testing.T) {
	bars, err := sample().Find(context.Background(), contracts.Query{
		TradeDate: day("2024-01-02"),
		SortBy:    contracts.FieldPE,
		Direction: contracts.Descending,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "D", "A"}, codes(bars))
}

func TestStore_FindMembership(t *testing.T) {
	s := sample()

	bars, err := s.Find(context.Background(), contracts.Query{
		TradeDate: day("2024-01-02"),
		Codes:     []string{"D", "A"},
		Volume:    contracts.VolumeSuspended,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"D"}, codes(bars))

	bars, err = s.Find(context.Background(), contracts.Query{Codes: []string{}})
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestStore_FindOneAndHistory(t *testing.T) {
	s := sample()
	ctx := context.Background()

	b, err := s.FindOne(ctx, day("2024-01-03"), "A")
	require.NoError(t, err)
	assert.Equal(t, 11.0, b.Close)

	_, err = s.FindOne(ctx, day("2024-01-03"), "B")
	assert.ErrorIs(t, err, contracts.ErrRecordNotFound)

	hist, err := s.History(ctx, "A", day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.True(t, hist[0].TradeDate.Before(hist[1].TradeDate))

	first, last, ok, err := s.DateRange(ctx, "A")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, day("2024-01-02"), first)
	assert.Equal(t, day("2024-01-03"), last)
	assert.Equal(t, 5, s.Len())
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sample().Find(ctx, contracts.Query{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVRoundTrip(t *testing.T) {
	in := "code,trade_date,open,close,high,low,volume,pe,pb\n" +
		"005930,2024-01-02,78000,79600,79800,77900,17142847,13.1,1.4\n" +
		"000660,2024-01-02,137000,136800,138000,135000,2839274,0,1.9\n"

	bars, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "005930", bars[0].Code)
	assert.Equal(t, int64(17142847), bars[0].Volume)

	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, bars))

	again, err := ReadCSV(strings.NewReader(sb.String()))
	require.NoError(t, err)
	if diff := cmp.Diff(bars, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCSV_BadDate(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("code,trade_date,open,close,high,low,volume,pe,pb\nA,20240102,1,1,1,1,1,1,1\n"))
	assert.Error(t, err)
}

func TestCalendars(t *testing.T) {
	ctx := context.Background()

	static := NewStaticCalendar(day("2024-01-03"), day("2024-01-02"), day("2024-01-03"))
	dates, err := static.TradingDates(ctx, "KOSPI", day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-01-02"), day("2024-01-03")}, dates)

	// 2024-01-05 is a Friday
	dates, err = WeekdayCalendar{}.TradingDates(ctx, "", day("2024-01-05"), day("2024-01-08"))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-01-05"), day("2024-01-08")}, dates)
}
