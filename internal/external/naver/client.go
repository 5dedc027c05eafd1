package naver

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wonny/valuepool/pkg/config"
	"github.com/wonny/valuepool/pkg/httputil"
	"github.com/wonny/valuepool/pkg/logger"
)

// Client talks to Naver Finance: the fchart JSON endpoint for daily bars and the
// finance.naver.com HTML pages for listings and annual EPS.
// ⭐ SSOT: Naver Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	chartURL   string
}

func NewClient(httpClient *httputil.Client, log *logger.Logger, cfg config.NaverConfig) *Client {
	c := &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("naver"),
		baseURL:    cfg.BaseURL,
		chartURL:   cfg.ChartURL,
	}
	if c.baseURL == "" {
		c.baseURL = "https://finance.naver.com"
	}
	if c.chartURL == "" {
		c.chartURL = "https://fchart.stock.naver.com"
	}
	return c
}

func (c *Client) get(ctx context.Context, base, path string, params url.Values) ([]byte, error) {
	full := base + path
	if len(params) > 0 {
		full += "?" + params.Encode()
	}

	body, err := c.httpClient.GetBytes(ctx, full)
	if err != nil {
		return nil, fmt.Errorf("naver %s: %w", path, err)
	}
	return body, nil
}
