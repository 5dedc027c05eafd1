package collector

import (
	"context"
	"fmt"

	"github.com/wonny/valuepool/internal/contracts"
)

// ListingSource lists the stocks traded on a market
type ListingSource interface {
	FetchListing(ctx context.Context, market string) ([]contracts.Instrument, error)
}

// InstrumentStore persists the crawl universe
type InstrumentStore interface {
	List(ctx context.Context, kind contracts.InstrumentKind) ([]contracts.Instrument, error)
	Upsert(ctx context.Context, instruments []contracts.Instrument) error
}

// DefaultMarkets are the markets whose listings make up the stock universe
var DefaultMarkets = []string{"KOSPI", "KOSDAQ"}

// RefreshUniverse stores the current listing of every market and returns the active stocks.
// A failed listing falls back to the stored universe.
func RefreshUniverse(ctx context.Context, src ListingSource, store InstrumentStore, markets []string) ([]contracts.Instrument, error) {
	var listed []contracts.Instrument
	var listErr error
	for _, m := range markets {
		items, err := src.FetchListing(ctx, m)
		if err != nil {
			listErr = fmt.Errorf("listing %s: %w", m, err)
			break
		}
		for i := range items {
			items[i].Kind = contracts.KindStock
		}
		listed = append(listed, items...)
	}

	if listErr == nil && len(listed) > 0 {
		if err := store.Upsert(ctx, listed); err != nil {
			return nil, fmt.Errorf("store listing: %w", err)
		}
	}

	stocks, err := store.List(ctx, contracts.KindStock)
	if err != nil {
		return nil, err
	}
	if len(stocks) == 0 && listErr != nil {
		return nil, listErr
	}
	return stocks, nil
}

// IndexInstruments turns index symbols into crawlable instruments
func IndexInstruments(codes []string) []contracts.Instrument {
	out := make([]contracts.Instrument, len(codes))
	for i, c := range codes {
		out[i] = contracts.Instrument{Code: c, Name: c, Kind: contracts.KindIndex, Status: "active"}
	}
	return out
}
