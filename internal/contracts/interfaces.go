package contracts

import "context"

// DataSource fetches the four feature bundles for one instrument.
// ⭐ SSOT: S2 데이터 소스 인터페이스
// 각 메서드는 독립적으로 실패할 수 있다.
type DataSource interface {
	FetchTechnical(ctx context.Context, inst Instrument) (*TechnicalBundle, error)
	FetchFundamental(ctx context.Context, inst Instrument) (*FundamentalBundle, error)
	FetchFlow(ctx context.Context, inst Instrument) (*FlowBundle, error)
	FetchNews(ctx context.Context, inst Instrument) (*NewsBundle, error)
}

// PriceSource returns current prices keyed by code (batch)
// 조회 실패 종목은 map 에서 빠진다.
type PriceSource interface {
	FetchCurrentPrices(ctx context.Context, codes []string) (map[string]float64, error)
}

// ModelTier selects the cheaper or stronger reasoning model
type ModelTier string

const (
	TierCheap  ModelTier = "cheap"  // summarizers, evaluator
	TierStrong ModelTier = "strong" // strategy, selection
)

// ReasoningService answers a prompt with free text
// ⭐ SSOT: 자연어 추론 서비스 인터페이스
type ReasoningService interface {
	Ask(ctx context.Context, prompt string, tier ModelTier) (string, error)
}

// MarketOverviewSource builds the compact market overview string (S4)
type MarketOverviewSource interface {
	Build(ctx context.Context) (string, error)
}

// UniverseResolver produces candidate instruments (S1)
// ⭐ SSOT: S1 유니버스 생성 인터페이스
type UniverseResolver interface {
	Resolve(ctx context.Context) (*Universe, error)
}
