package dart

import (
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/wonny/threes/backend/pkg/config"
	"github.com/wonny/threes/backend/pkg/httputil"
	"github.com/wonny/threes/backend/pkg/logger"
)

// Client handles communication with the DART (전자공시) Open API
// ⭐ SSOT: DART API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
}

// NewClient creates a new DART API client.
// The given httputil client gets the legacy TLS transport DART needs.
func NewClient(httpClient *httputil.Client, cfg config.DARTConfig, log *logger.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://opendart.fss.or.kr/api"
	}
	return &Client{
		httpClient: httpClient.WithTransport(LegacyTransport()),
		logger:     log.WithModule("dart"),
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
	}
}

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// LegacyTransport is compatible with DART's TLS setup.
// DART 서버는 RSA key exchange 만 지원 (Go 1.22+ 기본값에서 빠짐)
func LegacyTransport() *http.Transport {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,

			// RSA KEX (legacy)
			tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_RSA_WITH_AES_256_CBC_SHA,
		},
	}

	return &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: false,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		TLSClientConfig:       tlsCfg,
		MaxIdleConns:          20,
		MaxConnsPerHost:       5,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// DisclosureResponse represents DART API response for disclosure list
type DisclosureResponse struct {
	Status      string       `json:"status"`
	Message     string       `json:"message"`
	PageNo      int          `json:"page_no"`
	TotalCount  int          `json:"total_count"`
	TotalPage   int          `json:"total_page"`
	Disclosures []Disclosure `json:"list"`
}

// Disclosure represents a single disclosure item
type Disclosure struct {
	CorpCode  string `json:"corp_code"`
	CorpName  string `json:"corp_name"`
	StockCode string `json:"stock_code"`
	CorpCls   string `json:"corp_cls"`  // Y: 유가, K: 코스닥, N: 코넥스, E: 기타
	ReportNm  string `json:"report_nm"` // 공시 제목
	RceptNo   string `json:"rcept_no"`  // 접수번호
	FlrNm     string `json:"flr_nm"`    // 공시 제출인
	RceptDt   string `json:"rcept_dt"`  // 접수일자 (YYYYMMDD)
	Rm        string `json:"rm"`        // 비고
}

// ReceivedAt parses the receipt date in KST
func (d Disclosure) ReceivedAt() time.Time {
	t, err := time.ParseInLocation("20060102", d.RceptDt, kst)
	if err != nil {
		return time.Time{}
	}
	return t
}

var kst = time.FixedZone("KST", 9*60*60)

var majorKeywords = []string{
	"사업보고서",
	"분기보고서",
	"반기보고서",
	"주요사항보고서",
	"유상증자",
	"무상증자",
	"합병",
	"분할",
	"영업양수도",
	"자기주식",
	"전환사채",
	"신주인수권부사채",
}

// IsMajorDisclosure checks if the disclosure is a major one
func IsMajorDisclosure(reportName string) bool {
	for _, keyword := range majorKeywords {
		if strings.Contains(reportName, keyword) {
			return true
		}
	}
	return false
}

// GetDARTURL builds the DART disclosure URL
func GetDARTURL(rceptNo string) string {
	return "https://dart.fss.or.kr/dsaf001/main.do?rcpNo=" + rceptNo
}
