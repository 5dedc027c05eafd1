package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuepool/internal/contracts"
)

type fakeListing struct {
	items map[string][]contracts.Instrument
	err   error
}

func (f fakeListing) FetchListing(_ context.Context, market string) ([]contracts.Instrument, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[market], nil
}

type fakeInstruments struct {
	stored []contracts.Instrument
}

func (f *fakeInstruments) List(_ context.Context, kind contracts.InstrumentKind) ([]contracts.Instrument, error) {
	var out []contracts.Instrument
	for _, in := range f.stored {
		if in.Kind == kind {
			out = append(out, in)
		}
	}
	return out, nil
}

func (f *fakeInstruments) Upsert(_ context.Context, instruments []contracts.Instrument) error {
	f.stored = append(f.stored, instruments...)
	return nil
}

func TestRefreshUniverse(t *testing.T) {
	src := fakeListing{items: map[string][]contracts.Instrument{
		"KOSPI":  {{Code: "005930", Market: "KOSPI"}},
		"KOSDAQ": {{Code: "035720", Market: "KOSDAQ"}},
	}}
	store := &fakeInstruments{}

	got, err := RefreshUniverse(context.Background(), src, store, DefaultMarkets)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, in := range got {
		assert.Equal(t, contracts.KindStock, in.Kind)
	}
}

func TestRefreshUniverse_FallsBackToStored(t *testing.T) {
	store := &fakeInstruments{stored: []contracts.Instrument{{Code: "005930", Kind: contracts.KindStock}}}

	got, err := RefreshUniverse(context.Background(), fakeListing{err: errors.New("503")}, store, DefaultMarkets)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = RefreshUniverse(context.Background(), fakeListing{err: errors.New("503")}, &fakeInstruments{}, DefaultMarkets)
	assert.Error(t, err)
}

func TestIndexInstruments(t *testing.T) {
	got := IndexInstruments([]string{"KOSPI", "KPI200"})
	require.Len(t, got, 2)
	assert.Equal(t, contracts.KindIndex, got[1].Kind)
	assert.Equal(t, "KPI200", got[1].Code)
}
