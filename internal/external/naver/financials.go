package naver

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var fiscalYearRe = regexp.MustCompile(`^(\d{4})\.\d{2}`)

// FetchAnnualEPS scrapes the company summary page and returns EPS by fiscal year.
// Estimated years, marked "(E)", are skipped.
func (c *Client) FetchAnnualEPS(ctx context.Context, code string) (map[int]float64, error) {
	params := url.Values{}
	params.Set("code", code)

	body, err := c.get(ctx, c.baseURL, "/item/main.naver", params)
	if err != nil {
		return nil, err
	}

	eps, err := parseAnnualEPS(body)
	if err != nil {
		return nil, fmt.Errorf("parse eps %s: %w", code, err)
	}
	return eps, nil
}

// parseAnnualEPS reads the "기업실적분석" table. The first header row gives the number
// of annual columns (colspan of the first group), the second row the fiscal periods.
func parseAnnualEPS(html []byte) (map[int]float64, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find("div.cop_analysis table").First()
	if table.Length() == 0 {
		return map[int]float64{}, nil
	}

	headRows := table.Find("thead tr")
	annualCols := 4
	if span, ok := headRows.Eq(0).Find("th").Eq(1).Attr("colspan"); ok {
		if n, err := strconv.Atoi(span); err == nil && n > 0 {
			annualCols = n
		}
	}

	var years []int // 0 marks an estimate column
	headRows.Eq(1).Find("th").EachWithBreak(func(i int, th *goquery.Selection) bool {
		if i >= annualCols {
			return false
		}
		text := strings.TrimSpace(th.Text())
		m := fiscalYearRe.FindStringSubmatch(text)
		if m == nil || strings.Contains(text, "(E)") {
			years = append(years, 0)
			return true
		}
		y, _ := strconv.Atoi(m[1])
		years = append(years, y)
		return true
	})

	eps := make(map[int]float64)
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		label := strings.TrimSpace(tr.Find("th").First().Text())
		if !strings.HasPrefix(label, "EPS") {
			return
		}
		tr.Find("td").Each(func(i int, td *goquery.Selection) {
			if i >= len(years) || years[i] == 0 {
				return
			}
			raw := strings.ReplaceAll(strings.TrimSpace(td.Text()), ",", "")
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				eps[years[i]] = v
			}
		})
	})
	return eps, nil
}
