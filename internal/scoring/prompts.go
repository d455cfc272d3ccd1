package scoring

import (
	"fmt"
	"strings"

	"github.com/wonny/threes/backend/internal/contracts"
)

// Digest kinds
const (
	DigestNews        = "news"
	DigestTechnical   = "technical"
	DigestFundamental = "fundamental"
)

const noDataDigest = "데이터 없음 (no data available)"

const maxNewsItems = 8

// renderNews lists headlines newest first
func renderNews(nb *contracts.NewsBundle) string {
	if nb.IsEmpty() {
		return ""
	}
	var b strings.Builder
	for i, item := range nb.Items {
		if i >= maxNewsItems {
			break
		}
		date := ""
		if !item.PublishedAt.IsZero() {
			date = item.PublishedAt.Format("2006-01-02") + " "
		}
		fmt.Fprintf(&b, "- %s%s", date, item.Title)
		if item.Source != "" {
			fmt.Fprintf(&b, " (%s)", item.Source)
		}
		b.WriteString("\n")
		if body := truncateRunes(item.Body, 160); body != "" {
			fmt.Fprintf(&b, "  %s\n", body)
		}
	}
	return b.String()
}

// renderTechnical includes investor flow when available
func renderTechnical(tb *contracts.TechnicalBundle, flow *contracts.FlowBundle) string {
	if tb == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "종가: %.0f (전일 %.0f, 1D %+.2f%%)\n", tb.Price, tb.PrevClose, tb.Return1D)
	fmt.Fprintf(&b, "수익률: 5D %+.2f%%, 20D %+.2f%%\n", tb.Return5D, tb.Return20D)
	fmt.Fprintf(&b, "이동평균: MA5 %.0f, MA20 %.0f (괴리 %+.2f%%)", tb.MA5, tb.MA20, tb.MA20Gap)
	if tb.MA60 > 0 {
		fmt.Fprintf(&b, ", MA60 %.0f", tb.MA60)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "RSI14: %.1f, MACD: %.2f (signal %.2f)\n", tb.RSI14, tb.MACD, tb.MACDSignal)
	fmt.Fprintf(&b, "20일 변동성(일간 수익률 표준편차): %.2f%%\n", tb.Volatility20D)
	if flow != nil {
		fmt.Fprintf(&b, "수급: 외국인 %+d주 (5일 %+d), 기관 %+d주 (5일 %+d)\n",
			flow.ForeignNet, flow.ForeignNet5D, flow.InstitutionNet, flow.InstitutionNet5D)
	}
	return b.String()
}

func renderFundamental(fb *contracts.FundamentalBundle) string {
	if fb.IsEmpty() {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "PER %.2f, PBR %.2f, EPS %.0f, BPS %.0f\n", fb.PER, fb.PBR, fb.EPS, fb.BPS)
	fmt.Fprintf(&b, "ROE %.2f%%, 부채비율 %.2f%%, 배당수익률 %.2f%%\n", fb.ROE, fb.DebtRatio, fb.DividendYield)
	if fb.MarketCap > 0 {
		fmt.Fprintf(&b, "시가총액: %d억원\n", fb.MarketCap/100_000_000)
	}
	if len(fb.QuarterRevenue) > 0 {
		fmt.Fprintf(&b, "분기 매출(억원, 과거→최근): %s\n", joinFloats(fb.QuarterRevenue))
	}
	if len(fb.QuarterOpProfit) > 0 {
		fmt.Fprintf(&b, "분기 영업이익(억원, 과거→최근): %s\n", joinFloats(fb.QuarterOpProfit))
	}
	if fb.ConsensusTarget > 0 {
		fmt.Fprintf(&b, "컨센서스 목표주가: %.0f", fb.ConsensusTarget)
		if fb.Opinion != "" {
			fmt.Fprintf(&b, " (의견 %s)", fb.Opinion)
		}
		b.WriteString("\n")
	}
	if len(fb.Disclosures) > 0 {
		fmt.Fprintf(&b, "최근 주요 공시: %s\n", strings.Join(fb.Disclosures, "; "))
	}
	return b.String()
}

func summarizerPrompt(kind string, inst contracts.Instrument, body string) string {
	var focus string
	switch kind {
	case DigestNews:
		focus = "Summarize the tone (positive/negative/mixed) and the most material events in these headlines."
	case DigestTechnical:
		focus = "Summarize trend, momentum and volatility from these indicators, and what investor flows suggest."
	default:
		focus = "Summarize profitability, balance-sheet health and growth trajectory from these figures."
	}
	return fmt.Sprintf(`You are summarizing %s data for %s (%s).
%s
Answer in at most 4 sentences. Do not invent numbers.

DATA:
%s`, kind, inst.Name, inst.Code, focus, body)
}

func evaluatorPrompt(inst contracts.Instrument, digests map[string]string) string {
	return fmt.Sprintf(`Evaluate %s (%s) on six dimensions using the three analyst digests below.
Score each dimension as an integer from 1 (worst) to 10 (best):
- financial_health: balance sheet and profitability
- growth_potential: revenue/earnings growth outlook
- news_sentiment: tone of recent news
- news_impact: materiality of recent events for the price
- price_momentum: strength of the recent price trend
- volatility_risk: price stability (10 = very stable, 1 = very volatile)

When a digest says no data is available, score its dimensions 5.

NEWS DIGEST:
%s

TECHNICAL DIGEST:
%s

FUNDAMENTAL DIGEST:
%s

Respond with JSON only, in exactly this shape:
{"financial_health": {"score": 0, "reason": ""}, "growth_potential": {"score": 0, "reason": ""}, "news_sentiment": {"score": 0, "reason": ""}, "news_impact": {"score": 0, "reason": ""}, "price_momentum": {"score": 0, "reason": ""}, "volatility_risk": {"score": 0, "reason": ""}, "summary": ""}`,
		inst.Name, inst.Code, digests[DigestNews], digests[DigestTechnical], digests[DigestFundamental])
}

func joinFloats(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%.0f", x)
	}
	return strings.Join(parts, ", ")
}

func truncateRunes(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
