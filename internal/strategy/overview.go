package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/threes/backend/internal/external/krx"
	"github.com/wonny/threes/backend/internal/external/naver"
	"github.com/wonny/threes/backend/pkg/logger"
)

// IndexSource returns index quotes (KOSPI, KOSDAQ)
type IndexSource interface {
	FetchIndex(ctx context.Context, code string) (*naver.IndexQuote, error)
}

// TrendSource returns market-wide investor net buying
type TrendSource interface {
	FetchMarketTrend(ctx context.Context, market string) (*krx.MarketTrendData, error)
}

// HeadlineSource returns notable market headlines
type HeadlineSource interface {
	FetchMarketHeadlines(ctx context.Context, n int) ([]string, error)
}

// OverviewBuilder composes the compact market overview string.
// Any missing part only shortens the result.
type OverviewBuilder struct {
	indices   IndexSource
	trends    TrendSource
	headlines HeadlineSource
	markets   []string
	maxNews   int
	logger    *logger.Logger
}

// NewOverviewBuilder creates a builder; any source may be nil
func NewOverviewBuilder(indices IndexSource, trends TrendSource, headlines HeadlineSource, log *logger.Logger) *OverviewBuilder {
	return &OverviewBuilder{
		indices:   indices,
		trends:    trends,
		headlines: headlines,
		markets:   []string{"KOSPI", "KOSDAQ"},
		maxNews:   5,
		logger:    log.WithModule("overview"),
	}
}

// Build implements contracts.MarketOverviewSource
func (b *OverviewBuilder) Build(ctx context.Context) (string, error) {
	var lines []string

	for _, m := range b.markets {
		if b.indices != nil {
			q, err := b.indices.FetchIndex(ctx, m)
			if err != nil {
				b.logger.WithError(err).WithField("index", m).Debug("Index quote unavailable")
			} else {
				lines = append(lines, fmt.Sprintf("%s %.2f (%+.2f, %+.2f%%)", m, q.Close, q.Change, q.ChangePct))
			}
		}
		if b.trends != nil {
			tr, err := b.trends.FetchMarketTrend(ctx, m)
			if err != nil {
				b.logger.WithError(err).WithField("market", m).Debug("Market trend unavailable")
			} else {
				lines = append(lines, fmt.Sprintf("%s 수급(%s): 외국인 %+.0f억, 기관 %+.0f억, 개인 %+.0f억",
					m, tr.TradeDate.Format("01-02"), tr.ForeignNet, tr.InstitutionNet, tr.IndividualNet))
			}
		}
	}

	if b.headlines != nil {
		heads, err := b.headlines.FetchMarketHeadlines(ctx, b.maxNews)
		if err != nil {
			b.logger.WithError(err).Debug("Headlines unavailable")
		}
		for _, h := range heads {
			lines = append(lines, "뉴스: "+h)
		}
	}

	if len(lines) == 0 {
		return "", fmt.Errorf("market overview unavailable")
	}
	return strings.Join(lines, "\n"), nil
}
