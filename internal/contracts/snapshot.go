package contracts

import "time"

// Snapshot is a point-in-time feature bundle set for one instrument (S2 → S3)
// ⭐ SSOT: S2 → S3 피처 데이터 전달
// nil bundle = source unavailable. Technical 없이는 유효하지 않음.
type Snapshot struct {
	Instrument  Instrument         `json:"instrument"`
	CollectedAt time.Time          `json:"collected_at"`
	Technical   *TechnicalBundle   `json:"technical,omitempty"`
	Fundamental *FundamentalBundle `json:"fundamental,omitempty"`
	Flow        *FlowBundle        `json:"flow,omitempty"`
	News        *NewsBundle        `json:"news,omitempty"`
}

// TechnicalBundle holds price-derived features
type TechnicalBundle struct {
	Price         float64 `json:"price"`          // 최근 종가
	PrevClose     float64 `json:"prev_close"`     // 전일 종가
	Return1D      float64 `json:"return_1d"`      // %
	Return5D      float64 `json:"return_5d"`      // 주간 수익률 (%)
	Return20D     float64 `json:"return_20d"`     // %
	MA5           float64 `json:"ma5"`            //
	MA20          float64 `json:"ma20"`           //
	MA60          float64 `json:"ma60,omitempty"` // 데이터 부족 시 0
	MA20Gap       float64 `json:"ma20_gap"`       // (price - ma20) / ma20 (%)
	RSI14         float64 `json:"rsi14"`
	MACD          float64 `json:"macd"`
	MACDSignal    float64 `json:"macd_signal"`
	Volatility20D float64 `json:"volatility_20d"` // 20일 일간 수익률 표준편차 (%)
	Volume        int64   `json:"volume"`
	Days          int     `json:"days"` // 사용된 거래일 수
}

// FundamentalBundle holds valuation and balance-sheet ratios
// 0 은 "알 수 없음"을 의미
type FundamentalBundle struct {
	PER             float64   `json:"per"`
	PBR             float64   `json:"pbr"`
	EPS             float64   `json:"eps"`
	BPS             float64   `json:"bps"`
	ROE             float64   `json:"roe"`        // %
	DebtRatio       float64   `json:"debt_ratio"` // %
	DividendYield   float64   `json:"dividend_yield"`
	MarketCap       int64     `json:"market_cap"`             // 원
	QuarterRevenue  []float64 `json:"quarter_revenue"`        // 오래된 분기 → 최근 분기 (억원)
	QuarterOpProfit []float64 `json:"quarter_op_profit"`      // 오래된 분기 → 최근 분기 (억원)
	ConsensusTarget float64   `json:"consensus_target"`       // 목표주가
	Opinion         string    `json:"opinion,omitempty"`      // 투자의견
	Disclosures     []string  `json:"disclosures,omitempty"` // 최근 주요 공시 제목
}

// IsEmpty reports whether no ratio was recovered
func (f *FundamentalBundle) IsEmpty() bool {
	return f == nil || (f.PER == 0 && f.PBR == 0 && f.ROE == 0 && f.DebtRatio == 0 &&
		len(f.QuarterRevenue) == 0 && f.ConsensusTarget == 0)
}

// FlowBundle holds investor net-buy features (주)
type FlowBundle struct {
	ForeignNet       int64 `json:"foreign_net"`     // 최근일 외국인 순매수
	InstitutionNet   int64 `json:"institution_net"` // 최근일 기관 순매수
	ForeignNet5D     int64 `json:"foreign_net_5d"`
	InstitutionNet5D int64 `json:"institution_net_5d"`
	Days             int   `json:"days"`
}

// NewsItem is a single headline with optional body text
type NewsItem struct {
	Title       string    `json:"title"`
	Body        string    `json:"body,omitempty"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsBundle holds news ordered most-recent-first
type NewsBundle struct {
	Items []NewsItem `json:"items"`
}

// IsEmpty reports whether there is no news
func (n *NewsBundle) IsEmpty() bool {
	return n == nil || len(n.Items) == 0
}

// IsValid checks the snapshot has at least the technical bundle
func (s *Snapshot) IsValid() bool {
	return s != nil && s.Technical != nil && s.Technical.Price > 0
}

// LastPrice returns latest close (0 if unknown)
func (s *Snapshot) LastPrice() float64 {
	if s == nil || s.Technical == nil {
		return 0
	}
	return s.Technical.Price
}

// Coverage returns which bundles are present
func (s *Snapshot) Coverage() map[string]bool {
	return map[string]bool{
		"technical":   s.Technical != nil,
		"fundamental": !s.Fundamental.IsEmpty(),
		"flow":        s.Flow != nil,
		"news":        !s.News.IsEmpty(),
	}
}
