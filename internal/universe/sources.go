package universe

import (
	"context"
	"time"

	"github.com/wonny/threes/backend/internal/external/krx"
	"github.com/wonny/threes/backend/internal/external/naver"
)

// NaverRanking adapts the Naver market-cap ranking
type NaverRanking struct {
	client *naver.Client
}

// NewNaverRanking creates the primary ranking source
func NewNaverRanking(client *naver.Client) *NaverRanking {
	return &NaverRanking{client: client}
}

func (s *NaverRanking) Name() string { return "naver" }

func (s *NaverRanking) Top(ctx context.Context, market string, n int) ([]Ranked, error) {
	rows, err := s.client.FetchMarketCapRanking(ctx, market, n)
	if err != nil {
		return nil, err
	}
	out := make([]Ranked, 0, len(rows))
	for _, row := range rows {
		out = append(out, Ranked{
			Code:      row.StockCode,
			Name:      row.Name,
			Market:    row.Market,
			MarketCap: row.MarketCap * 100_000_000, // 억 → 원
			Kind:      normalizeKind(row.EndType),
		})
	}
	return out, nil
}

// KRXRanking adapts the KRX data portal market-cap table
type KRXRanking struct {
	client *krx.Client
	date   func() time.Time
}

// NewKRXRanking creates the secondary ranking source. date returns the
// trade date to query.
func NewKRXRanking(client *krx.Client, date func() time.Time) *KRXRanking {
	if date == nil {
		date = time.Now
	}
	return &KRXRanking{client: client, date: date}
}

func (s *KRXRanking) Name() string { return "krx" }

func (s *KRXRanking) Top(ctx context.Context, market string, n int) ([]Ranked, error) {
	items, err := s.client.FetchMarketCaps(ctx, market, s.date())
	if err != nil {
		return nil, err
	}
	if len(items) > n {
		items = items[:n]
	}
	out := make([]Ranked, 0, len(items))
	for _, it := range items {
		out = append(out, Ranked{
			Code:      it.StockCode,
			Name:      it.StockName,
			Market:    market,
			MarketCap: it.MarketCap,
		})
	}
	return out, nil
}

// Naver stockEndType: "stock", "etf", "etn", ...
func normalizeKind(endType string) string {
	if endType == "" {
		return "stock"
	}
	return endType
}
