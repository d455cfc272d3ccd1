package naver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/wonny/threes/backend/pkg/config"
	"github.com/wonny/threes/backend/pkg/httputil"
	"github.com/wonny/threes/backend/pkg/logger"
)

// Client handles communication with Naver Finance
// ⭐ SSOT: Naver Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string // finance.naver.com (HTML, EUC-KR)
	chartURL   string // fchart.stock.naver.com
	mobileURL  string // m.stock.naver.com (JSON)
	pollingURL string // polling.finance.naver.com (JSON)
}

// NewClient creates a new Naver Finance client
func NewClient(httpClient *httputil.Client, cfg config.NaverConfig, log *logger.Logger) *Client {
	c := &Client{
		httpClient: httpClient.WithHeader("Referer", "https://finance.naver.com/"),
		logger:     log.WithModule("naver"),
		baseURL:    cfg.BaseURL,
		chartURL:   cfg.ChartURL,
		mobileURL:  cfg.MobileURL,
		pollingURL: cfg.PollingURL,
	}
	if c.baseURL == "" {
		c.baseURL = "https://finance.naver.com"
	}
	if c.chartURL == "" {
		c.chartURL = "https://fchart.stock.naver.com"
	}
	if c.mobileURL == "" {
		c.mobileURL = "https://m.stock.naver.com"
	}
	if c.pollingURL == "" {
		c.pollingURL = "https://polling.finance.naver.com"
	}
	return c
}

// fetchHTML fetches a finance.naver.com page and parses it with goquery
func (c *Client) fetchHTML(ctx context.Context, path string, params url.Values) (*goquery.Document, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}

	body, err := c.httpClient.GetBytes(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	return parseDocument(body)
}

// fetchJSON fetches a JSON endpoint into dest
func (c *Client) fetchJSON(ctx context.Context, fullURL string, dest interface{}) error {
	body, err := c.httpClient.GetBytes(ctx, fullURL)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseDocument decodes EUC-KR pages (finance.naver.com) before parsing
func parseDocument(body []byte) (*goquery.Document, error) {
	if !utf8.Valid(body) {
		decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), body)
		if err == nil {
			body = decoded
		}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}

// parseNumber parses "1,234.5", "+500", "-3.2%" style numbers (0 on failure)
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(",", "", "+", "", "%", "", "배", "", "원", "").Replace(s)
	if s == "" || s == "-" || s == "N/A" {
		return 0
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return n
}

// PriceData represents daily price data
type PriceData struct {
	StockCode  string
	TradeDate  time.Time
	OpenPrice  float64
	HighPrice  float64
	LowPrice   float64
	ClosePrice float64
	Volume     int64
}

// InvestorFlowData represents investor trading flow (주)
type InvestorFlowData struct {
	StockCode      string
	TradeDate      time.Time
	ForeignNet     int64 // 외국인 순매수
	InstitutionNet int64 // 기관 순매수
}

// FundamentalData represents valuation ratios from the item main page
type FundamentalData struct {
	StockCode       string
	PER             float64
	PBR             float64
	EPS             float64
	BPS             float64
	DividendYield   float64
	MarketCap       int64     // 억원
	ROE             float64   // 최근 분기 (%)
	DebtRatio       float64   // 최근 분기 (%)
	QuarterRevenue  []float64 // 억원, 오래된 → 최근
	QuarterOpProfit []float64 // 억원, 오래된 → 최근
	TargetPrice     float64
	Opinion         string
}

// NewsArticle represents a single news item
type NewsArticle struct {
	Title       string
	Body        string
	Office      string
	PublishedAt time.Time
}

// RankedStock is a market-cap ranking row
type RankedStock struct {
	Rank      int
	StockCode string
	Name      string
	Market    string
	MarketCap int64 // 억원
	EndType   string
}

// IndexQuote is a market index snapshot
type IndexQuote struct {
	Code      string
	Name      string
	Close     float64
	Change    float64
	ChangePct float64
}
