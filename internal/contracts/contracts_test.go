package contracts

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDay(t *testing.T) {
	kst := time.FixedZone("KST", 9*3600)
	in := time.Date(2024, 3, 5, 23, 10, 0, 0, kst)

	got := Day(in)
	if !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Day() = %v", got)
	}
	if DateKey(got) != "2024-03-05" {
		t.Errorf("DateKey() = %s", DateKey(got))
	}
}

func TestBar_Metric(t *testing.T) {
	b := Bar{Code: "005930", Close: 71000, PE: 12.5, PB: 1.3, Volume: 100}

	tests := []struct {
		field Field
		want  float64
		ok    bool
	}{
		{FieldPE, 12.5, true},
		{FieldPB, 1.3, true},
		{FieldClose, 71000, true},
		{FieldVolume, 100, true},
		{FieldCode, 0, false},
	}
	for _, tt := range tests {
		got, ok := b.Metric(tt.field)
		assert.Equal(t, tt.ok, ok, tt.field)
		assert.Equal(t, tt.want, got, tt.field)
	}
}

func TestParseRankField(t *testing.T) {
	f, err := ParseRankField(" PE ")
	require.NoError(t, err)
	assert.Equal(t, FieldPE, f)

	_, err = ParseRankField("volume")
	assert.True(t, errors.Is(err, ErrInvalidParams))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, Ascending, d)

	d, err = ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Descending, d)

	_, err = ParseDirection("sideways")
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestRange(t *testing.T) {
	r := Range{Lo: 0, Hi: 10}

	assert.False(t, r.Contains(0), "lower bound is open")
	assert.False(t, r.Contains(10), "upper bound is open")
	assert.True(t, r.Contains(9.99))
	assert.NoError(t, r.Validate())
	assert.ErrorIs(t, Range{Lo: 5, Hi: 5}.Validate(), ErrInvalidParams)
}

func TestQuery_Matches(t *testing.T) {
	d := date("2024-01-02")
	bar := Bar{Code: "A", TradeDate: d, PE: 5, Volume: 10}

	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{"empty query", Query{}, true},
		{"same date", Query{TradeDate: d}, true},
		{"other date", Query{TradeDate: d.AddDate(0, 0, 1)}, false},
		{"active", Query{Volume: VolumeActive}, true},
		{"suspended", Query{Volume: VolumeSuspended}, false},
		{"in range", Query{Metric: FieldPE, MetricRange: &Range{Lo: 0, Hi: 10}}, true},
		{"out of range", Query{Metric: FieldPE, MetricRange: &Range{Lo: 5, Hi: 10}}, false},
		{"member", Query{Codes: []string{"B", "A"}}, true},
		{"not member", Query{Codes: []string{"B"}}, false},
		{"empty membership matches nothing", Query{Codes: []string{}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Matches(bar))
		})
	}
}

func TestQuery_Validate(t *testing.T) {
	assert.NoError(t, Query{SortBy: FieldPE, Fields: []Field{FieldCode}}.Validate())
	assert.ErrorIs(t, Query{MetricRange: &Range{Hi: 1}}.Validate(), ErrInvalidParams)
	assert.ErrorIs(t, Query{SortBy: "pe; drop table"}.Validate(), ErrInvalidParams)
	assert.ErrorIs(t, Query{Fields: []Field{"name"}}.Validate(), ErrInvalidParams)
	assert.ErrorIs(t, Query{Limit: -1}.Validate(), ErrInvalidParams)
}

func TestPools(t *testing.T) {
	p := NewPools()
	codes := []string{"A", "B"}
	p.Add(date("2024-01-02"), codes)
	p.Add(date("2024-01-05"), []string{"B", "C"})

	codes[0] = "mutated"

	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []string{"A", "B"}, p.Get(date("2024-01-02")))
	assert.Nil(t, p.Get(date("2024-01-03")))
	assert.Equal(t, []PoolEntry{
		{Date: "2024-01-02", Codes: []string{"A", "B"}},
		{Date: "2024-01-05", Codes: []string{"B", "C"}},
	}, p.Entries())
}

func TestYearSpanAndAnnualize(t *testing.T) {
	assert.Equal(t, 3, YearSpan(date("2015-06-01"), date("2017-01-31")))
	assert.Equal(t, 1, YearSpan(date("2017-01-01"), date("2017-12-31")))

	got := Annualize(1.21, 2)
	assert.InDelta(t, 0.1, got, 1e-9)
	assert.Equal(t, 0.0, Annualize(1.5, 0))

	s := &NetValueSeries{}
	assert.Equal(t, 1.0, s.FinalNetValue())
	s.Points = []NetValuePoint{{NetValue: 1}, {NetValue: 1.1}}
	assert.False(t, math.IsNaN(s.FinalNetValue()))
	assert.Equal(t, 1.1, s.FinalNetValue())
}

func TestFetchState_Done(t *testing.T) {
	assert.True(t, FetchSuccess.Done())
	assert.True(t, FetchEmpty.Done())
	assert.False(t, FetchError.Done())
	assert.False(t, FetchPending.Done())
}
