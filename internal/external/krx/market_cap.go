package krx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MarketCapItem represents a single stock's market cap from the KRX portal
type MarketCapItem struct {
	StockCode  string
	StockName  string
	MarketCap  int64 // 원
	ClosePrice int64
	TradeDate  time.Time
}

// krxMarketCapResponse represents KRX API response
type krxMarketCapResponse struct {
	OutBlock1 []krxMarketCapRow `json:"OutBlock_1"`
}

type krxMarketCapRow struct {
	ShortCode  string `json:"ISU_SRT_CD"` // 종목코드 (단축)
	Abbrv      string `json:"ISU_ABBRV"`  // 종목명
	ClosePrice string `json:"TDD_CLSPRC"` // 종가
	MarketCap  string `json:"MKTCAP"`     // 시가총액
}

// FetchMarketCaps fetches the full market-cap table of a market for the
// given trade date, sorted by market cap descending.
// ⭐ SSOT: KRX 시가총액 조회는 이 함수에서만
func (c *Client) FetchMarketCaps(ctx context.Context, market string, tradeDate time.Time) ([]MarketCapItem, error) {
	var mktID string
	switch strings.ToUpper(market) {
	case "KOSPI":
		mktID = "STK"
	case "KOSDAQ":
		mktID = "KSQ"
	default:
		return nil, fmt.Errorf("unsupported market: %s", market)
	}

	trdDd := tradeDate.Format("20060102")
	formData := url.Values{
		"bld":         {"dbms/MDC/STAT/standard/MDCSTAT01501"},
		"locale":      {"ko_KR"},
		"mktId":       {mktID},
		"trdDd":       {trdDd},
		"share":       {"1"},
		"money":       {"1"},
		"csvxls_isNo": {"false"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.portalURL+"/comm/bldAttendant/getJsonData.cmd", strings.NewReader(formData.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// KRX 는 브라우저 헤더가 없으면 차단함
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Origin", "http://data.krx.co.kr")
	req.Header.Set("Referer", "http://data.krx.co.kr/contents/MDC/MDI/mdiLoader/index.cmd?menuId=MDC0201020101")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("KRX API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("KRX API returned status %d", resp.StatusCode)
	}

	var apiResp krxMarketCapResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode KRX response: %w", err)
	}

	result := make([]MarketCapItem, 0, len(apiResp.OutBlock1))
	for _, row := range apiResp.OutBlock1 {
		if row.ShortCode == "" {
			continue
		}
		result = append(result, MarketCapItem{
			StockCode:  row.ShortCode,
			StockName:  row.Abbrv,
			MarketCap:  parseKRXNumber(row.MarketCap),
			ClosePrice: parseKRXNumber(row.ClosePrice),
			TradeDate:  tradeDate,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].MarketCap > result[j].MarketCap
	})

	c.logger.WithFields(map[string]interface{}{
		"market":     market,
		"trade_date": trdDd,
		"count":      len(result),
	}).Debug("Fetched market caps from KRX")

	return result, nil
}

// parseKRXNumber parses KRX number format (with commas) to int64
func parseKRXNumber(s string) int64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "-" {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
