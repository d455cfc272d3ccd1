package krx

import (
	"context"
	"net/http"
	"net/http/httptest"
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
	return NewClient(httpClient, logger.NewNop()).WithBaseURLs(srv.URL, srv.URL)
}

func TestParseNetBuyVolume(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{"positive with comma", "+1,459,781", 1459781},
		{"negative with comma", "-1,240,182", -1240182},
		{"positive without sign", "1000000", 1000000},
		{"with spaces", " +1,234 ", 1234},
		{"zero", "0", 0},
		{"empty string", "", 0},
		{"invalid", "abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseNetBuyVolume(tt.input); got != tt.want {
				t.Errorf("parseNetBuyVolume(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFetchMarketTrend(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/index/KOSDAQ/trend", r.URL.Path)
		_, _ = w.Write([]byte(`{"bizdate":"20240115","personalValue":"-1,500","foreignValue":"+1,000","institutionalValue":"+500"}`))
	})

	trend, err := c.FetchMarketTrend(context.Background(), "kosdaq")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), trend.TradeDate)
	assert.Equal(t, 1000.0, trend.ForeignNet)
	assert.Equal(t, 500.0, trend.InstitutionNet)
	assert.Equal(t, -1500.0, trend.IndividualNet)
}

func TestFetchMarketTrend_Empty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.FetchMarketTrend(context.Background(), "KOSPI")
	assert.Error(t, err)
}

func TestFetchMarketCaps(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "KSQ", r.PostForm.Get("mktId"))
		assert.Equal(t, "20240115", r.PostForm.Get("trdDd"))
		_, _ = w.Write([]byte(`{"OutBlock_1":[
			{"ISU_SRT_CD":"086520","ISU_ABBRV":"에코프로","TDD_CLSPRC":"600,000","MKTCAP":"15,000,000"},
			{"ISU_SRT_CD":"247540","ISU_ABBRV":"에코프로비엠","TDD_CLSPRC":"250,000","MKTCAP":"24,000,000"},
			{"ISU_SRT_CD":"","ISU_ABBRV":"bad","TDD_CLSPRC":"-","MKTCAP":"-"}
		]}`))
	})

	items, err := c.FetchMarketCaps(context.Background(), "KOSDAQ", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "247540", items[0].StockCode, "sorted by market cap desc")
	assert.Equal(t, int64(250000), items[0].ClosePrice)
}

func TestFetchMarketCaps_UnsupportedMarket(t *testing.T) {
	c := NewClient(httputil.New(&config.Config{}, logger.NewNop()), logger.NewNop())
	_, err := c.FetchMarketCaps(context.Background(), "NYSE", time.Now())
	assert.Error(t, err)
}

func TestParseKRXNumber(t *testing.T) {
	assert.Equal(t, int64(15000000), parseKRXNumber("15,000,000"))
	assert.Equal(t, int64(0), parseKRXNumber("-"))
	assert.Equal(t, int64(0), parseKRXNumber(""))
}
