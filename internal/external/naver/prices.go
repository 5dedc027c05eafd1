package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/valuepool/internal/contracts"
)

// Index symbols understood by the chart endpoint
const (
	IndexKOSPI  = "KOSPI"
	IndexKOSDAQ = "KOSDAQ"
	IndexKPI200 = "KPI200"
)

var priceRowRe = regexp.MustCompile(`\[\s*"(\d{8})"\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)`)

// FetchPrices returns the daily bars of a stock or index symbol in [from, to].
// PE and PB are left zero; the collector derives them.
// ⭐ SSOT: Naver Finance 가격 API 호출은 이 함수에서만
func (c *Client) FetchPrices(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("requestType", "1")
	params.Set("startTime", from.Format("20060102"))
	params.Set("endTime", to.Format("20060102"))
	params.Set("timeframe", "day")

	body, err := c.get(ctx, c.chartURL, "/siseJson.naver", params)
	if err != nil {
		return nil, err
	}

	bars, err := parsePriceResponse(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse prices %s: %w", symbol, err)
	}
	for i := range bars {
		bars[i].Code = symbol
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched prices")
	return bars, nil
}

// parsePriceResponse reads the fchart body: a JS array whose first row is a header,
// then [date, open, high, low, close, volume, ...] rows.
func parsePriceResponse(body string) ([]contracts.Bar, error) {
	body = strings.TrimSpace(strings.ReplaceAll(body, "'", "\""))
	if body == "" {
		return nil, nil
	}

	var raw [][]interface{}
	if err := json.Unmarshal([]byte(body), &raw); err == nil {
		return parsePriceJSON(raw), nil
	}
	return parsePriceRegex(body), nil
}

func parsePriceJSON(raw [][]interface{}) []contracts.Bar {
	var bars []contracts.Bar
	for i, row := range raw {
		if i == 0 || len(row) < 6 {
			continue // header
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		tradeDate, err := time.ParseInLocation("20060102", strings.TrimSpace(dateStr), time.UTC)
		if err != nil {
			continue
		}

		bars = append(bars, contracts.Bar{
			TradeDate: tradeDate,
			Open:      toFloat(row[1]),
			High:      toFloat(row[2]),
			Low:       toFloat(row[3]),
			Close:     toFloat(row[4]),
			Volume:    int64(toFloat(row[5])),
		})
	}
	return bars
}

// parsePriceRegex is the fallback for bodies that are not strict JSON
func parsePriceRegex(body string) []contracts.Bar {
	var bars []contracts.Bar
	for _, m := range priceRowRe.FindAllStringSubmatch(body, -1) {
		tradeDate, err := time.ParseInLocation("20060102", m[1], time.UTC)
		if err != nil {
			continue
		}
		bars = append(bars, contracts.Bar{
			TradeDate: tradeDate,
			Open:      toFloat(m[2]),
			High:      toFloat(m[3]),
			Low:       toFloat(m[4]),
			Close:     toFloat(m[5]),
			Volume:    int64(toFloat(m[6])),
		})
	}
	return bars
}

func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		f, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(val), ",", ""), 64)
		return f
	default:
		return 0
	}
}
