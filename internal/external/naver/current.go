package naver

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const pollingBatchSize = 20

type pollingResponse struct {
	Datas []pollingItem `json:"datas"`
}

type pollingItem struct {
	ItemCode      string `json:"itemCode"`
	StockName     string `json:"stockName"`
	ClosePrice    string `json:"closePrice"`
	ClosePriceRaw string `json:"closePriceRaw"`
}

// FetchCurrentPrices returns the latest price per code.
// Batch polling API first; codes it misses fall back to the last chart close.
// Codes with no price at all are absent from the result.
func (c *Client) FetchCurrentPrices(ctx context.Context, codes []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(codes))

	for start := 0; start < len(codes); start += pollingBatchSize {
		end := start + pollingBatchSize
		if end > len(codes) {
			end = len(codes)
		}
		batch := codes[start:end]

		var resp pollingResponse
		fullURL := fmt.Sprintf("%s/api/realtime/domestic/stock/%s", c.pollingURL, strings.Join(batch, ","))
		if err := c.fetchJSON(ctx, fullURL, &resp); err != nil {
			c.logger.WithError(err).WithField("count", len(batch)).Warn("Polling price batch failed")
			continue
		}
		for _, item := range resp.Datas {
			raw := item.ClosePriceRaw
			if raw == "" {
				raw = item.ClosePrice
			}
			if p := parseNumber(raw); p > 0 {
				prices[item.ItemCode] = p
			}
		}
	}

	// 누락 종목은 일봉 종가로 보완
	now := time.Now()
	for _, code := range codes {
		if _, ok := prices[code]; ok {
			continue
		}
		history, err := c.FetchPrices(ctx, code, now.AddDate(0, 0, -10), now)
		if err != nil {
			c.logger.WithError(err).WithField("stock_code", code).Warn("Current price unavailable")
			continue
		}
		for i := len(history) - 1; i >= 0; i-- {
			if history[i].ClosePrice > 0 {
				prices[code] = history[i].ClosePrice
				break
			}
		}
	}

	if len(prices) == 0 && len(codes) > 0 {
		return prices, fmt.Errorf("no current prices for %d codes", len(codes))
	}
	return prices, nil
}
