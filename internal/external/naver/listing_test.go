package naver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuepool/internal/contracts"
)

const listingPage1 = `
<table class="type_2">
<tr><td class="no">1</td><td><a href="/item/main.naver?code=005930" class="tltle">삼성전자</a></td></tr>
<tr><td class="no">2</td><td><a href="/item/main.naver?code=000660" class="tltle">SK하이닉스</a></td></tr>
</table>
<table class="Nnavi"><tr><td class="pgRR"><a href="?page=2">맨뒤</a></td></tr></table>`

const listingPage2 = `
<table class="type_2">
<tr><td class="no">3</td><td><a href="/item/main.naver?code=373220" class="tltle">LG에너지솔루션</a></td></tr>
</table>`

func TestParseListingHTML(t *testing.T) {
	items, hasMore := parseListingHTML([]byte(listingPage1), "KOSPI")
	assert.True(t, hasMore)
	require.Len(t, items, 2)
	assert.Equal(t, contracts.Instrument{
		Code: "005930", Name: "삼성전자", Market: "KOSPI", Kind: contracts.KindStock, Status: "active",
	}, items[0])
}

func TestFetchListing_Paginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("sosok"))
		if r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(listingPage1))
			return
		}
		_, _ = w.Write([]byte(listingPage2))
	}))
	defer srv.Close()

	items, err := newTestClient(srv.URL).FetchListing(context.Background(), "kospi")
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestFetchListing_UnknownMarket(t *testing.T) {
	_, err := newTestClient("http://unused").FetchListing(context.Background(), "NYSE")
	assert.Error(t, err)
}
