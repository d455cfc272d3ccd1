package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/threes/backend/internal/contracts"
)

// HeuristicScores derives a ScoreVector from numeric snapshot features only.
// Used when reasoning is administratively disabled. Missing bundles leave
// their dimensions at 5.
func HeuristicScores(snap *contracts.Snapshot) (contracts.ScoreVector, map[contracts.Dimension]string) {
	scores := contracts.NeutralScoreVector()
	why := make(map[contracts.Dimension]string)

	if fb := snap.Fundamental; !fb.IsEmpty() {
		scores[contracts.DimFinancialHealth], why[contracts.DimFinancialHealth] = financialHealth(fb)
		scores[contracts.DimGrowthPotential], why[contracts.DimGrowthPotential] = growthPotential(fb, snap.LastPrice())
	}

	sentiment := newsSentiment100(snap.News, snap.CollectedAt)
	if !snap.News.IsEmpty() {
		scores[contracts.DimNewsSentiment] = contracts.ClampScoreFloat(sentiment / 10)
		why[contracts.DimNewsSentiment] = fmt.Sprintf("최근 24시간 뉴스 활동 지수 %.0f/100", sentiment)
		scores[contracts.DimNewsImpact], why[contracts.DimNewsImpact] = newsImpact(snap)
	}

	if tb := snap.Technical; tb != nil {
		m := 5 + tb.Return5D/2 + (tb.RSI14-50)/10
		if tb.MA20 > 0 && tb.Price > tb.MA20 {
			m += 0.5
		}
		scores[contracts.DimPriceMomentum] = contracts.ClampScoreFloat(m)
		why[contracts.DimPriceMomentum] = fmt.Sprintf("5D %+.2f%%, RSI14 %.1f, MA20 괴리 %+.2f%%", tb.Return5D, tb.RSI14, tb.MA20Gap)

		// 높을수록 안정적
		scores[contracts.DimVolatilityRisk] = contracts.ClampScoreFloat(10 - tb.Volatility20D*2)
		why[contracts.DimVolatilityRisk] = fmt.Sprintf("20일 변동성 %.2f%%", tb.Volatility20D)
	}

	return scores, why
}

// CompositeScore is the single-number ranking of the original script:
// rsi*0.3 + weekly_return*0.4 + sentiment*0.3 (sentiment on a 0-100 scale)
func CompositeScore(snap *contracts.Snapshot) float64 {
	if snap.Technical == nil {
		return 0
	}
	s := snap.Technical.RSI14*0.3 + snap.Technical.Return5D*0.4 + newsSentiment100(snap.News, snap.CollectedAt)*0.3
	return math.Round(s*100) / 100
}

// newsSentiment100 is 50 + 5 per article in the 24h before ref, capped at 100
func newsSentiment100(nb *contracts.NewsBundle, ref time.Time) float64 {
	if nb.IsEmpty() {
		return 50
	}
	if ref.IsZero() {
		ref = time.Now()
	}
	recent := 0
	for _, item := range nb.Items {
		if !item.PublishedAt.IsZero() && ref.Sub(item.PublishedAt) <= 24*time.Hour && !item.PublishedAt.After(ref) {
			recent++
		}
	}
	return math.Min(100, 50+float64(recent)*5)
}

func newsImpact(snap *contracts.Snapshot) (int, string) {
	major := 0
	if snap.Fundamental != nil {
		major = len(snap.Fundamental.Disclosures)
	}
	if major == 0 {
		return contracts.ScoreNeutral, "주요 공시 없음"
	}
	return contracts.ClampScore(contracts.ScoreNeutral + major), fmt.Sprintf("최근 주요 공시 %d건", major)
}

func financialHealth(fb *contracts.FundamentalBundle) (int, string) {
	s := 5.0
	switch {
	case fb.ROE > 15:
		s += 2
	case fb.ROE > 8:
		s++
	case fb.ROE < 0:
		s -= 2
	}
	switch {
	case fb.DebtRatio <= 0:
	case fb.DebtRatio < 50:
		s++
	case fb.DebtRatio > 200:
		s -= 2
	case fb.DebtRatio > 100:
		s--
	}
	switch {
	case fb.PER < 0:
		s--
	case fb.PER > 0 && fb.PER < 15:
		s++
	}
	return contracts.ClampScoreFloat(s), fmt.Sprintf("ROE %.1f%%, 부채비율 %.1f%%, PER %.1f", fb.ROE, fb.DebtRatio, fb.PER)
}

func growthPotential(fb *contracts.FundamentalBundle, price float64) (int, string) {
	s := 5.0
	growth := 0.0
	if n := len(fb.QuarterRevenue); n >= 2 && fb.QuarterRevenue[0] > 0 {
		growth = (fb.QuarterRevenue[n-1]/fb.QuarterRevenue[0] - 1) * 100
		s += clamp(growth/10, -3, 3)
	}
	if n := len(fb.QuarterOpProfit); n >= 2 && fb.QuarterOpProfit[0] <= 0 && fb.QuarterOpProfit[n-1] > 0 {
		s++ // 흑자 전환
	}
	upside := 0.0
	if fb.ConsensusTarget > 0 && price > 0 {
		upside = (fb.ConsensusTarget/price - 1) * 100
		s += clamp(upside/10, -2, 2)
	}
	return contracts.ClampScoreFloat(s), fmt.Sprintf("매출 성장 %+.1f%%, 목표가 괴리 %+.1f%%", growth, upside)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
