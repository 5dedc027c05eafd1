package naver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const summaryHTML = `
<html><body>
<div class="section cop_analysis">
<table>
<thead>
	<tr>
		<th rowspan="2">주요재무정보</th>
		<th colspan="4">최근 연간 실적</th>
		<th colspan="2">최근 분기 실적</th>
	</tr>
	<tr>
		<th>2021.12</th>
		<th>2022.12</th>
		<th>2023.12</th>
		<th>2024.12(E)</th>
		<th>2023.09</th>
		<th>2023.12</th>
	</tr>
</thead>
<tbody>
	<tr><th>매출액</th><td>2,796,048</td><td>3,022,314</td><td>2,589,355</td><td>3,000,000</td><td>1</td><td>2</td></tr>
	<tr><th>EPS(원)</th><td>5,777</td><td>8,057</td><td>2,131</td><td>4,500</td><td>850</td><td>-</td></tr>
</tbody>
</table>
</div>
</body></html>`

func TestParseAnnualEPS(t *testing.T) {
	eps, err := parseAnnualEPS([]byte(summaryHTML))
	require.NoError(t, err)

	assert.Equal(t, map[int]float64{2021: 5777, 2022: 8057, 2023: 2131}, eps)
}

func TestParseAnnualEPS_NoTable(t *testing.T) {
	eps, err := parseAnnualEPS([]byte("<html><body>none</body></html>"))
	require.NoError(t, err)
	assert.Empty(t, eps)
}

func TestFetchAnnualEPS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/item/main.naver", r.URL.Path)
		assert.Equal(t, "005930", r.URL.Query().Get("code"))
		_, _ = w.Write([]byte(summaryHTML))
	}))
	defer srv.Close()

	eps, err := newTestClient(srv.URL).FetchAnnualEPS(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, 8057.0, eps[2022])
}
