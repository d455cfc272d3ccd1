package dart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const pageCount = 100

// FetchRecentByStock sweeps listed-company disclosures filed between from
// and to and groups them by stock code. Only codes in want are kept; a nil
// want keeps everything.
// ⭐ SSOT: DART 공시 데이터 호출은 이 함수에서만
func (c *Client) FetchRecentByStock(ctx context.Context, from, to time.Time, maxPages int, want map[string]bool) (map[string][]Disclosure, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("dart api key not configured")
	}
	if maxPages < 1 {
		maxPages = 1
	}

	out := make(map[string][]Disclosure)
	for page := 1; page <= maxPages; page++ {
		items, totalPage, err := c.fetchPage(ctx, from, to, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			// 일부 페이지만 실패하면 있는 것만 사용
			c.logger.WithError(err).WithField("page", page).Warn("DART page failed")
			break
		}
		for _, d := range items {
			if d.StockCode == "" {
				continue
			}
			if want != nil && !want[d.StockCode] {
				continue
			}
			out[d.StockCode] = append(out[d.StockCode], d)
		}
		if page >= totalPage {
			break
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
		"stocks": len(out),
	}).Debug("Fetched DART disclosures")

	return out, nil
}

// fetchPage fetches a single page of disclosures for all listed companies
func (c *Client) fetchPage(ctx context.Context, from, to time.Time, page int) ([]Disclosure, int, error) {
	q := url.Values{
		"crtfc_key":  {c.apiKey},
		"bgn_de":     {from.Format("20060102")},
		"end_de":     {to.Format("20060102")},
		"page_no":    {strconv.Itoa(page)},
		"page_count": {strconv.Itoa(pageCount)},
	}

	body, err := c.httpClient.GetBytes(ctx, c.baseURL+"/list.json?"+q.Encode())
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP request: %w", err)
	}

	var result DisclosureResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}

	// 000 = success, 013 = no data
	switch result.Status {
	case "000":
		return result.Disclosures, result.TotalPage, nil
	case "013":
		return nil, 0, nil
	default:
		return nil, 0, fmt.Errorf("API error: %s - %s", result.Status, result.Message)
	}
}
