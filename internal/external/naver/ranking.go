package naver

import (
	"context"
	"fmt"
)

type marketValueResponse struct {
	Stocks []marketValueItem `json:"stocks"`
}

type marketValueItem struct {
	ItemCode     string `json:"itemCode"`
	StockName    string `json:"stockName"`
	MarketValue  string `json:"marketValue"` // 억원
	StockEndType string `json:"stockEndType"`
}

// FetchMarketCapRanking returns the top n stocks of a market (KOSPI/KOSDAQ)
// ordered by market capitalization descending.
// ⭐ SSOT: Naver 시가총액 랭킹 호출은 이 함수에서만
func (c *Client) FetchMarketCapRanking(ctx context.Context, market string, n int) ([]RankedStock, error) {
	fullURL := fmt.Sprintf("%s/api/stocks/marketValue/%s?page=1&pageSize=%d", c.mobileURL, market, n)

	var resp marketValueResponse
	if err := c.fetchJSON(ctx, fullURL, &resp); err != nil {
		return nil, err
	}

	items := make([]RankedStock, 0, len(resp.Stocks))
	for i, s := range resp.Stocks {
		items = append(items, RankedStock{
			Rank:      i + 1,
			StockCode: s.ItemCode,
			Name:      s.StockName,
			Market:    market,
			MarketCap: int64(parseNumber(s.MarketValue)),
			EndType:   s.StockEndType,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"market": market,
		"count":  len(items),
	}).Debug("Fetched market cap ranking")

	return items, nil
}
