package naver

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var investorDateRe = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)

// FetchInvestorFlow fetches the most recent `days` rows of investor flow
// (most-recent-first) from the frgn page.
// ⭐ SSOT: Naver Finance 투자자 수급 데이터 호출은 이 함수에서만
func (c *Client) FetchInvestorFlow(ctx context.Context, stockCode string, days int) ([]InvestorFlowData, error) {
	var all []InvestorFlowData

	// 페이지당 20 거래일, 최대 3 페이지
	for page := 1; page <= 3 && len(all) < days; page++ {
		doc, err := c.fetchHTML(ctx, "/item/frgn.naver", url.Values{
			"code": {stockCode},
			"page": {strconv.Itoa(page)},
		})
		if err != nil {
			if len(all) > 0 {
				break
			}
			return nil, err
		}

		rows, hasMore := parseInvestorHTML(doc, stockCode)
		all = append(all, rows...)
		if !hasMore || len(rows) == 0 {
			break
		}
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("no investor flow rows for %s", stockCode)
	}
	if len(all) > days {
		all = all[:days]
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code": stockCode,
		"count":      len(all),
	}).Debug("Fetched investor flow")
	return all, nil
}

// parseInvestorHTML parses the frgn page investor table
// 컬럼: 날짜 | 종가 | 전일비 | 등락률 | 거래량 | 기관 | 외국인 | ...
func parseInvestorHTML(doc *goquery.Document, stockCode string) ([]InvestorFlowData, bool) {
	var rows []InvestorFlowData

	// Naver Finance HTML 구조: 두번째 type2 테이블이 데이터 테이블
	tables := doc.Find("table.type2")
	if tables.Length() < 2 {
		return rows, false
	}

	tables.Eq(1).Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		if !investorDateRe.MatchString(dateText) {
			return
		}
		tradeDate, err := time.Parse("2006.01.02", dateText)
		if err != nil {
			return
		}

		rows = append(rows, InvestorFlowData{
			StockCode:      stockCode,
			TradeDate:      tradeDate,
			InstitutionNet: int64(parseNumber(cells.Eq(5).Text())),
			ForeignNet:     int64(parseNumber(cells.Eq(6).Text())),
		})
	})

	// 다음 페이지 존재 여부 확인
	hasMore := doc.Find(".pgRR").Length() > 0
	return rows, hasMore
}
