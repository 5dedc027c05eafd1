package naver

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/valuepool/internal/contracts"
)

// Market identifiers of the market-cap listing (sosok parameter)
var listingMarkets = map[string]string{
	"KOSPI":  "0",
	"KOSDAQ": "1",
}

const maxListingPages = 60

// FetchListing walks the market-cap ranking pages of a market and returns every stock on it
func (c *Client) FetchListing(ctx context.Context, market string) ([]contracts.Instrument, error) {
	sosok, ok := listingMarkets[strings.ToUpper(market)]
	if !ok {
		return nil, fmt.Errorf("unknown market %q", market)
	}

	var out []contracts.Instrument
	for page := 1; page <= maxListingPages; page++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		params := url.Values{}
		params.Set("sosok", sosok)
		params.Set("page", strconv.Itoa(page))

		body, err := c.get(ctx, c.baseURL, "/sise/sise_market_sum.naver", params)
		if err != nil {
			return out, err
		}

		items, hasMore := parseListingHTML(body, strings.ToUpper(market))
		out = append(out, items...)
		if !hasMore || len(items) == 0 {
			break
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"market": market,
		"count":  len(out),
	}).Info("Fetched listing")
	return out, nil
}

func parseListingHTML(html []byte, market string) ([]contracts.Instrument, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, false
	}

	var items []contracts.Instrument
	doc.Find("table.type_2 a.tltle").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		code := u.Query().Get("code")
		if code == "" {
			return
		}
		items = append(items, contracts.Instrument{
			Code:   code,
			Name:   strings.TrimSpace(a.Text()),
			Market: market,
			Kind:   contracts.KindStock,
			Status: "active",
		})
	})

	return items, doc.Find("td.pgRR").Length() > 0
}
