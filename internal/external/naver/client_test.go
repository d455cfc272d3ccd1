package naver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/threes/backend/pkg/config"
	"github.com/wonny/threes/backend/pkg/httputil"
	"github.com/wonny/threes/backend/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	httpClient := httputil.New(&config.Config{}, logger.NewNop()).DisableRetry()
	return NewClient(httpClient, config.NaverConfig{
		BaseURL:    srv.URL,
		ChartURL:   srv.URL,
		MobileURL:  srv.URL,
		PollingURL: srv.URL,
	}, logger.NewNop())
}

func TestFetchMarketCapRanking(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stocks/marketValue/KOSDAQ", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("pageSize"))
		_, _ = w.Write([]byte(`{"stocks":[
			{"itemCode":"247540","stockName":"에코프로비엠","marketValue":"200,000","stockEndType":"stock"},
			{"itemCode":"086520","stockName":"에코프로","marketValue":"150,000","stockEndType":"stock"}
		]}`))
	})

	items, err := c.FetchMarketCapRanking(context.Background(), "KOSDAQ", 30)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Rank)
	assert.Equal(t, "247540", items[0].StockCode)
	assert.Equal(t, "에코프로비엠", items[0].Name)
	assert.Equal(t, int64(200000), items[0].MarketCap)
	assert.Equal(t, "KOSDAQ", items[1].Market)
}

func TestFetchNews(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/news/stock/005930", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"total":2,"items":[
				{"officeName":"연합뉴스","datetime":"202401151030","title":"older &amp; item","body":"b1"},
				{"officeName":"한경","datetime":"202401161000","title":"<b>newer</b>","body":"b2"}
			]}
		]`))
	})

	articles, err := c.FetchNews(context.Background(), "005930", 3)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "newer", articles[0].Title)
	assert.Equal(t, "older & item", articles[1].Title)
	assert.Equal(t, 2024, articles[0].PublishedAt.Year())
}

func TestFetchIndex(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"stockName":"코스피","closePrice":"2,650.12","compareToPreviousClosePrice":"-10.20","fluctuationsRatio":"-0.38"}`))
	})

	quote, err := c.FetchIndex(context.Background(), "KOSPI")
	require.NoError(t, err)
	assert.Equal(t, 2650.12, quote.Close)
	assert.Equal(t, -0.38, quote.ChangePct)
}

func TestFetchCurrentPrices_FallsBackToChart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/realtime/domestic/stock/"):
			_, _ = w.Write([]byte(`{"datas":[{"itemCode":"005930","closePriceRaw":"71000"}]}`))
		case r.URL.Path == "/siseJson.naver" && r.URL.Query().Get("symbol") == "000660":
			_, _ = w.Write([]byte(`[["날짜","시가","고가","저가","종가","거래량"],["20240115",1,1,1,130000,10]]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	prices, err := c.FetchCurrentPrices(context.Background(), []string{"005930", "000660", "999999"})
	require.NoError(t, err)
	assert.Equal(t, 71000.0, prices["005930"])
	assert.Equal(t, 130000.0, prices["000660"])
	_, ok := prices["999999"]
	assert.False(t, ok, "unpriced codes are absent, not zero")
}

func TestLatestTradingDay(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[["날짜","시가","고가","저가","종가","거래량"],
			["20240112",1,1,1,70000,10],["20240115",1,1,1,71000,10],["20240116",0,0,0,0,0]]`))
	})

	day, err := c.LatestTradingDay(context.Background(), "005930", time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", day.Format("2006-01-02"))
}

func TestFetchInvestorFlow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/item/frgn.naver", r.URL.Path)
		_, _ = w.Write([]byte(`<table class="type2"></table><table class="type2">
			<tr><td>2024.01.16</td><td>1</td><td>1</td><td>1</td><td>1</td><td>+10</td><td>-20</td></tr>
			<tr><td>2024.01.15</td><td>1</td><td>1</td><td>1</td><td>1</td><td>+5</td><td>+7</td></tr>
		</table>`))
	})

	rows, err := c.FetchInvestorFlow(context.Background(), "005930", 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(-20), rows[0].ForeignNet)
	assert.Equal(t, int64(5), rows[1].InstitutionNet)
}
