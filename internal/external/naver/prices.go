package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var priceRowRe = regexp.MustCompile(`\["(\d{8})",\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+)`)

// FetchPrices fetches daily price data (oldest first) from the Naver chart API
// ⭐ SSOT: Naver Finance 가격 API 호출은 이 함수에서만
func (c *Client) FetchPrices(ctx context.Context, stockCode string, from, to time.Time) ([]PriceData, error) {
	fullURL := fmt.Sprintf(
		"%s/siseJson.naver?symbol=%s&requestType=1&startTime=%s&endTime=%s&timeframe=day",
		c.chartURL, stockCode, from.Format("20060102"), to.Format("20060102"),
	)

	body, err := c.httpClient.GetBytes(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	prices := parsePriceResponse(string(body))
	for i := range prices {
		prices[i].StockCode = stockCode
	}
	sort.Slice(prices, func(i, j int) bool {
		return prices[i].TradeDate.Before(prices[j].TradeDate)
	})

	c.logger.WithFields(map[string]interface{}{
		"stock_code": stockCode,
		"count":      len(prices),
	}).Debug("Fetched prices")
	return prices, nil
}

// LatestTradingDay returns the most recent date with a non-zero close for
// the reference stock, looking back 10 days from now.
func (c *Client) LatestTradingDay(ctx context.Context, refCode string, now time.Time) (time.Time, error) {
	prices, err := c.FetchPrices(ctx, refCode, now.AddDate(0, 0, -10), now)
	if err != nil {
		return time.Time{}, err
	}
	for i := len(prices) - 1; i >= 0; i-- {
		if prices[i].ClosePrice > 0 {
			return prices[i].TradeDate, nil
		}
	}
	return time.Time{}, fmt.Errorf("no trading day found for %s", refCode)
}

// parsePriceResponse parses the chart API body (JS-ish array with single quotes)
func parsePriceResponse(body string) []PriceData {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	// Try JSON parsing first
	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return parsePriceJSON(rawData)
	}

	// Fallback to regex parsing
	return parsePriceRegex(body)
}

// parsePriceJSON parses JSON array format (first row is the header)
func parsePriceJSON(rawData [][]interface{}) []PriceData {
	var prices []PriceData
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue
		}

		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		tradeDate, err := time.Parse("20060102", strings.TrimSpace(dateStr))
		if err != nil {
			continue
		}

		prices = append(prices, PriceData{
			TradeDate:  tradeDate,
			OpenPrice:  toFloat(row[1]),
			HighPrice:  toFloat(row[2]),
			LowPrice:   toFloat(row[3]),
			ClosePrice: toFloat(row[4]),
			Volume:     int64(toFloat(row[5])),
		})
	}
	return prices
}

// parsePriceRegex parses using regex (fallback)
func parsePriceRegex(body string) []PriceData {
	var prices []PriceData
	for _, match := range priceRowRe.FindAllStringSubmatch(body, -1) {
		tradeDate, err := time.Parse("20060102", match[1])
		if err != nil {
			continue
		}

		open, _ := strconv.ParseFloat(match[2], 64)
		high, _ := strconv.ParseFloat(match[3], 64)
		low, _ := strconv.ParseFloat(match[4], 64)
		closePrice, _ := strconv.ParseFloat(match[5], 64)
		volume, _ := strconv.ParseFloat(match[6], 64)

		prices = append(prices, PriceData{
			TradeDate:  tradeDate,
			OpenPrice:  open,
			HighPrice:  high,
			LowPrice:   low,
			ClosePrice: closePrice,
			Volume:     int64(volume),
		})
	}
	return prices
}

// toFloat converts various JSON value types to float64
func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		return parseNumber(val)
	default:
		return 0
	}
}
