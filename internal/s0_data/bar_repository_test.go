package s0_data

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuepool/internal/contracts"
)

func d(s string) time.Time {
	t, err := contracts.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuildFindSQL(t *testing.T) {
	day := d("2024-01-02")

	tests := []struct {
		name     string
		query    contracts.Query
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name: "ranked candidates",
			query: contracts.Query{
				TradeDate:   day,
				Metric:      contracts.FieldPE,
				MetricRange: &contracts.Range{Lo: 0, Hi: 10},
				Volume:      contracts.VolumeActive,
				Fields:      []contracts.Field{contracts.FieldCode},
				SortBy:      contracts.FieldPE,
				Direction:   contracts.Ascending,
				Limit:       2,
			},
			wantSQL:  "SELECT code FROM data.daily_bars WHERE trade_date = $1 AND pe > $2 AND pe < $3 AND volume <> 0 ORDER BY pe ASC, code ASC LIMIT $4",
			wantArgs: []interface{}{day, 0.0, 10.0, 2},
		},
		{
			name: "carry over",
			query: contracts.Query{
				TradeDate: day,
				Volume:    contracts.VolumeSuspended,
				Codes:     []string{"A", "B"},
				Fields:    []contracts.Field{contracts.FieldCode},
			},
			wantSQL:  "SELECT code FROM data.daily_bars WHERE trade_date = $1 AND volume = 0 AND code = ANY($2) ORDER BY code ASC, trade_date ASC",
			wantArgs: []interface{}{day, []string{"A", "B"}},
		},
		{
			name: "descending pb",
			query: contracts.Query{
				Metric:      contracts.FieldPB,
				MetricRange: &contracts.Range{Lo: 0.5, Hi: 2},
				SortBy:      contracts.FieldPB,
				Direction:   contracts.Descending,
				Fields:      []contracts.Field{contracts.FieldCode, contracts.FieldClose},
			},
			wantSQL:  "SELECT code, close FROM data.daily_bars WHERE pb > $1 AND pb < $2 ORDER BY pb DESC, code ASC",
			wantArgs: []interface{}{0.5, 2.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, _, err := buildFindSQL(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildFindSQL_AllColumnsByDefault(t *testing.T) {
	sql, args, fields, err := buildFindSQL(contracts.Query{})
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.Len(t, fields, 9)
	assert.Equal(t, "SELECT code, trade_date, open, close, high, low, volume, pe, pb FROM data.daily_bars ORDER BY code ASC, trade_date ASC", sql)
}

func TestBuildFindSQL_RejectsUnknownColumns(t *testing.T) {
	_, _, _, err := buildFindSQL(contracts.Query{SortBy: "pe; DROP TABLE x"})
	assert.ErrorIs(t, err, contracts.ErrInvalidParams)
}

func TestScanTargets(t *testing.T) {
	var b contracts.Bar
	targets := scanTargets(&b, []contracts.Field{contracts.FieldCode, contracts.FieldClose})
	require.Len(t, targets, 2)

	*(targets[0].(*string)) = "005930"
	*(targets[1].(*float64)) = 71000
	assert.Equal(t, "005930", b.Code)
	assert.Equal(t, 71000.0, b.Close)
}

func TestBarRepository_Integration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if testing.Short() || url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewBarRepository(pool)
	bars := []contracts.Bar{
		{Code: "ZZTEST1", TradeDate: d("2001-01-02"), Close: 10, Volume: 5, PE: 3},
		{Code: "ZZTEST2", TradeDate: d("2001-01-02"), Close: 20, Volume: 0, PE: 4},
	}
	require.NoError(t, repo.SaveBars(ctx, bars))

	got, err := repo.Find(ctx, contracts.Query{
		TradeDate: d("2001-01-02"),
		Codes:     []string{"ZZTEST1", "ZZTEST2"},
		Volume:    contracts.VolumeActive,
		Fields:    []contracts.Field{contracts.FieldCode},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ZZTEST1", got[0].Code)

	_, err = repo.FindOne(ctx, d("2001-01-03"), "ZZTEST1")
	assert.ErrorIs(t, err, contracts.ErrRecordNotFound)

	first, last, ok, err := repo.DateRange(ctx, "ZZTEST1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, first.Equal(last))
}
