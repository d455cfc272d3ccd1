package naver

import (
	"context"
	"fmt"
)

type indexBasicResponse struct {
	StockName                   string `json:"stockName"`
	ClosePrice                  string `json:"closePrice"`
	CompareToPreviousClosePrice string `json:"compareToPreviousClosePrice"`
	FluctuationsRatio           string `json:"fluctuationsRatio"`
}

// FetchIndex fetches the latest level of a market index (KOSPI, KOSDAQ)
func (c *Client) FetchIndex(ctx context.Context, code string) (*IndexQuote, error) {
	fullURL := fmt.Sprintf("%s/api/index/%s/basic", c.mobileURL, code)

	var resp indexBasicResponse
	if err := c.fetchJSON(ctx, fullURL, &resp); err != nil {
		return nil, err
	}

	quote := &IndexQuote{
		Code:      code,
		Name:      resp.StockName,
		Close:     parseNumber(resp.ClosePrice),
		Change:    parseNumber(resp.CompareToPreviousClosePrice),
		ChangePct: parseNumber(resp.FluctuationsRatio),
	}
	if quote.Close == 0 {
		return nil, fmt.Errorf("empty index quote for %s", code)
	}
	return quote, nil
}
