package naver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FetchFundamental scrapes valuation ratios, quarterly results and the
// analyst consensus from the item main page.
func (c *Client) FetchFundamental(ctx context.Context, stockCode string) (*FundamentalData, error) {
	doc, err := c.fetchHTML(ctx, "/item/main.naver", url.Values{"code": {stockCode}})
	if err != nil {
		return nil, err
	}

	data := parseFundamentalHTML(doc)
	data.StockCode = stockCode

	if data.PER == 0 && data.PBR == 0 && len(data.QuarterRevenue) == 0 {
		return nil, fmt.Errorf("no fundamental data for %s", stockCode)
	}
	return data, nil
}

func parseFundamentalHTML(doc *goquery.Document) *FundamentalData {
	data := &FundamentalData{
		PER:           parseNumber(doc.Find("#_per").First().Text()),
		PBR:           parseNumber(doc.Find("#_pbr").First().Text()),
		EPS:           parseNumber(doc.Find("#_eps").First().Text()),
		DividendYield: parseNumber(doc.Find("#_dvr").First().Text()),
		MarketCap:     parseMarketSum(doc.Find("#_market_sum").First().Text()),
	}

	// 기업실적분석: 연간 4열 + 분기 6열 (마지막 분기는 추정치일 수 있음)
	doc.Find("div.cop_analysis table tbody tr").Each(func(i int, row *goquery.Selection) {
		label := strings.TrimSpace(row.Find("th").First().Text())
		var quarters []float64
		row.Find("td").Each(func(j int, td *goquery.Selection) {
			if j < 4 {
				return
			}
			text := strings.TrimSpace(td.Text())
			if text == "" || text == "-" {
				return
			}
			quarters = append(quarters, parseNumber(text))
		})

		switch {
		case strings.HasPrefix(label, "매출액"):
			data.QuarterRevenue = quarters
		case strings.HasPrefix(label, "영업이익") && !strings.Contains(label, "률"):
			data.QuarterOpProfit = quarters
		case strings.HasPrefix(label, "ROE"):
			data.ROE = last(quarters)
		case strings.HasPrefix(label, "부채비율"):
			data.DebtRatio = last(quarters)
		case strings.HasPrefix(label, "BPS"):
			data.BPS = last(quarters)
		}
	})

	// 투자의견 l 목표주가
	doc.Find("div.aside_invest_info table tr").Each(func(i int, row *goquery.Selection) {
		if !strings.Contains(row.Find("th").Text(), "목표주가") {
			return
		}
		ems := row.Find("td em")
		if ems.Length() == 0 {
			return
		}
		data.TargetPrice = parseNumber(ems.Last().Text())
		if ems.Length() >= 2 {
			data.Opinion = strings.TrimSpace(ems.First().Parent().Text())
		}
	})

	return data
}

// parseMarketSum parses "1조 2,345" / "2,345" (억원)
func parseMarketSum(s string) int64 {
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return 0
	}
	var total float64
	if idx := strings.Index(s, "조"); idx >= 0 {
		total += parseNumber(s[:idx]) * 10000
		s = s[idx+len("조"):]
	}
	total += parseNumber(s)
	return int64(total)
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}
