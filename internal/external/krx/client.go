package krx

import (
	"time"

	"github.com/wonny/threes/backend/pkg/httputil"
	"github.com/wonny/threes/backend/pkg/logger"
)

// Client handles KRX market data (investor trend via the Naver mirror,
// market caps via the KRX data portal)
// ⭐ SSOT: KRX 시장 데이터 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string // m.stock.naver.com
	portalURL  string // data.krx.co.kr
}

// NewClient creates a new KRX client
func NewClient(httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithModule("krx"),
		baseURL:    "https://m.stock.naver.com",
		portalURL:  "http://data.krx.co.kr",
	}
}

// WithBaseURLs overrides endpoints (tests)
func (c *Client) WithBaseURLs(naverMobile, portal string) *Client {
	c.baseURL = naverMobile
	c.portalURL = portal
	return c
}

// MarketTrendResponse represents market trend API response from Naver
type MarketTrendResponse struct {
	Bizdate          string `json:"bizdate"`            // Trade date (YYYYMMDD)
	PersonalValue    string `json:"personalValue"`      // 개인 순매수 (억원)
	ForeignValue     string `json:"foreignValue"`       // 외국인 순매수 (억원)
	InstitutionValue string `json:"institutionalValue"` // 기관 순매수 (억원)
}

// MarketTrendData represents parsed market trend data
type MarketTrendData struct {
	Market         string
	TradeDate      time.Time
	ForeignNet     float64 // 외국인 순매수
	InstitutionNet float64 // 기관 순매수
	IndividualNet  float64 // 개인 순매수
}
