package krx

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FetchMarketTrend fetches market-wide investor net buying (KOSPI/KOSDAQ)
// ⭐ SSOT: KRX 시장 지표 호출은 이 함수에서만
func (c *Client) FetchMarketTrend(ctx context.Context, market string) (*MarketTrendData, error) {
	url := fmt.Sprintf("%s/api/index/%s/trend", c.baseURL, strings.ToUpper(market))

	body, err := c.httpClient.GetBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}

	var trend MarketTrendResponse
	if err := json.Unmarshal(body, &trend); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if trend.Bizdate == "" {
		return nil, fmt.Errorf("empty market trend for %s", market)
	}

	tradeDate, err := time.Parse("20060102", trend.Bizdate)
	if err != nil {
		return nil, fmt.Errorf("parse trade date: %w", err)
	}

	data := &MarketTrendData{
		Market:         market,
		TradeDate:      tradeDate,
		ForeignNet:     parseNetBuyVolume(trend.ForeignValue),
		InstitutionNet: parseNetBuyVolume(trend.InstitutionValue),
		IndividualNet:  parseNetBuyVolume(trend.PersonalValue),
	}

	c.logger.WithFields(map[string]interface{}{
		"market":      market,
		"trade_date":  tradeDate.Format("2006-01-02"),
		"foreign_net": data.ForeignNet,
		"inst_net":    data.InstitutionNet,
	}).Debug("Fetched market trend")

	return data, nil
}

// parseNetBuyVolume parses net buy strings like "+1,459,781" or "-1,240,182"
func parseNetBuyVolume(s string) float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return val
}
