package naver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuepool/pkg/config"
	"github.com/wonny/valuepool/pkg/httputil"
	"github.com/wonny/valuepool/pkg/logger"
)

const stockBody = `
[['날짜', '시가', '고가', '저가', '종가', '거래량', '외국인소진율'],
["20240102", 78200, 79800, 78200, 79600, 17142847, 53.39],
["20240103", 78500, 78800, 77000, 77000, 21753644, 53.33]
]`

const indexBody = `
[['날짜', '시가', '고가', '저가', '종가', '거래량', '외국인소진율'],
["20240102", 2645.47, 2675.80, 2641.47, 2669.81, 405442, 0.0]
]`

func TestParsePriceResponse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantClose float64
	}{
		{"stock", stockBody, 2, 79600},
		{"index with decimals", indexBody, 1, 2669.81},
		{"empty", "", 0, 0},
		{"header only", `[['날짜', '시가', '고가', '저가', '종가', '거래량']]`, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars, err := parsePriceResponse(tt.body)
			require.NoError(t, err)
			require.Len(t, bars, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, tt.wantClose, bars[0].Close)
				assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].TradeDate)
			}
		})
	}
}

func TestParsePriceJSON_FieldOrder(t *testing.T) {
	bars := parsePriceJSON([][]interface{}{
		{"날짜", "시가", "고가", "저가", "종가", "거래량"},
		{"20240115", 72300.0, 73000.0, 72000.0, 72500.0, 1000000.0},
		{"20240116", "72,500", "73500", "72300", "73000", "1200000"},
		{"bad", 1.0, 1.0, 1.0, 1.0, 1.0},
		{"20240117", 1.0},
	})
	require.Len(t, bars, 2)

	assert.Equal(t, 72300.0, bars[0].Open)
	assert.Equal(t, 73000.0, bars[0].High)
	assert.Equal(t, 72000.0, bars[0].Low)
	assert.Equal(t, 72500.0, bars[0].Close)
	assert.Equal(t, int64(1000000), bars[0].Volume)
	assert.Equal(t, 72500.0, bars[1].Open)
}

func TestParsePriceRegex(t *testing.T) {
	body := `[["20240115", 72300, 73000, 72000, 72500, 1000000, 52.1], broken ["20240116", 2645.5, 2675.8, 2641.4, 2669.8, 405442]`
	bars := parsePriceRegex(body)
	require.Len(t, bars, 2)
	assert.Equal(t, 2669.8, bars[1].Close)
	assert.Equal(t, int64(405442), bars[1].Volume)
}

func TestFetchPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/siseJson.naver", r.URL.Path)
		assert.Equal(t, "005930", r.URL.Query().Get("symbol"))
		assert.Equal(t, "20240101", r.URL.Query().Get("startTime"))
		assert.Equal(t, "day", r.URL.Query().Get("timeframe"))
		_, _ = w.Write([]byte(stockBody))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	bars, err := c.FetchPrices(context.Background(), "005930",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "005930", bars[0].Code)
	assert.Equal(t, "005930", bars[1].Code)
}

func TestFetchPrices_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPrices(context.Background(), "005930", time.Now(), time.Now())
	assert.Error(t, err)
}

func newTestClient(base string) *Client {
	hc := httputil.New(logger.NewNop()).DisableRetry()
	return NewClient(hc, logger.NewNop(), config.NaverConfig{BaseURL: base, ChartURL: base})
}
