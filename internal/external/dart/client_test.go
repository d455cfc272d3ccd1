package dart

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

func newTestClient(t *testing.T, key string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	httpClient := httputil.New(&config.Config{}, logger.NewNop()).DisableRetry()
	return NewClient(httpClient, config.DARTConfig{APIKey: key, BaseURL: srv.URL}, logger.NewNop())
}

func TestIsMajorDisclosure(t *testing.T) {
	tests := []struct {
		name       string
		reportName string
		want       bool
	}{
		{"사업보고서", "사업보고서 (2024.01)", true},
		{"분기보고서", "분기보고서 (2024.3Q)", true},
		{"주요사항보고서", "주요사항보고서(유상증자결정)", true},
		{"합병", "합병계약체결결정", true},
		{"자기주식", "자기주식취득신탁계약체결", true},
		{"일반공시", "감사보고서제출", false},
		{"기타공시", "임원ㆍ주요주주특정증권등소유상황보고서", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMajorDisclosure(tt.reportName))
		})
	}
}

func TestGetDARTURL(t *testing.T) {
	assert.Equal(t, "https://dart.fss.or.kr/dsaf001/main.do?rcpNo=20240115000123", GetDARTURL("20240115000123"))
}

func TestDisclosure_ReceivedAt(t *testing.T) {
	d := Disclosure{RceptDt: "20240115"}
	assert.Equal(t, 15, d.ReceivedAt().Day())
	assert.True(t, Disclosure{RceptDt: "bad"}.ReceivedAt().IsZero())
}

func TestFetchRecentByStock(t *testing.T) {
	calls := 0
	c := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/list.json", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("crtfc_key"))
		switch r.URL.Query().Get("page_no") {
		case "1":
			_, _ = w.Write([]byte(`{"status":"000","total_page":2,"list":[
				{"stock_code":"005930","corp_name":"삼성전자","report_nm":"분기보고서","rcept_dt":"20240115"},
				{"stock_code":"","corp_name":"비상장","report_nm":"감사보고서"},
				{"stock_code":"999999","corp_name":"기타","report_nm":"합병"}
			]}`))
		default:
			_, _ = w.Write([]byte(`{"status":"000","total_page":2,"list":[
				{"stock_code":"005930","corp_name":"삼성전자","report_nm":"자기주식취득결정","rcept_dt":"20240114"}
			]}`))
		}
	})

	to := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	got, err := c.FetchRecentByStock(context.Background(), to.AddDate(0, 0, -7), to, 5, map[string]bool{"005930": true})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, got, 1)
	assert.Len(t, got["005930"], 2)
}

func TestFetchRecentByStock_NoData(t *testing.T) {
	c := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"013","message":"조회된 데이타가 없습니다."}`))
	})

	got, err := c.FetchRecentByStock(context.Background(), time.Now().AddDate(0, 0, -1), time.Now(), 3, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchRecentByStock_APIError(t *testing.T) {
	c := newTestClient(t, "bad", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"020","message":"invalid key"}`))
	})

	_, err := c.FetchRecentByStock(context.Background(), time.Now(), time.Now(), 1, nil)
	assert.Error(t, err)
}

func TestFetchRecentByStock_NoKey(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not call the API without a key")
	})

	assert.False(t, c.Enabled())
	_, err := c.FetchRecentByStock(context.Background(), time.Now(), time.Now(), 1, nil)
	assert.Error(t, err)
}
