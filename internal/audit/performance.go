// Package audit summarizes realized outcomes of past decisions.
package audit

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/logger"
)

// Analyzer summarizes backfilled trajectory entries
// ⭐ SSOT: trajectory 성과 요약은 여기서만
type Analyzer struct {
	logger *logger.Logger
}

// NewAnalyzer creates a new performance analyzer
func NewAnalyzer(log *logger.Logger) *Analyzer {
	return &Analyzer{logger: log.WithModule("audit")}
}

// PerformanceReport is a summary over entries with a realized Perf.
// Each entry is one decision held from its date to its last backfill, so
// returns overlap in time and are not compounded.
type PerformanceReport struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Entries   int    `json:"entries"`
	Evaluated int    `json:"evaluated"` // Perf 가 있는 entry 수

	// 수익률 (%)
	MeanReturn   float64  `json:"mean_return"`
	MedianReturn float64  `json:"median_return"`
	Best         *Extreme `json:"best,omitempty"`
	Worst        *Extreme `json:"worst,omitempty"`

	// 리스크 지표
	Volatility float64 `json:"volatility"` // entry 수익률 표준편차
	Ratio      float64 `json:"ratio"`      // mean / volatility
	VaR95      float64 `json:"var_95"`     // 손실을 양수로
	CVaR95     float64 `json:"cvar_95"`

	// 결정 지표
	WinRate      float64 `json:"win_rate"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	ProfitFactor float64 `json:"profit_factor"`

	// 종목 단위
	Positions       int     `json:"positions"`         // 가격이 확인된 position 수
	PositionHitRate float64 `json:"position_hit_rate"` // 수익 position 비율
	AvgCashWeight   float64 `json:"avg_cash_weight"`
}

// Extreme identifies the best or worst entry
type Extreme struct {
	Date   string  `json:"date"`
	Return float64 `json:"return"`
}

// Analyze builds the report. An empty or unevaluated log yields a report
// with zero metrics.
func (a *Analyzer) Analyze(log *contracts.TrajectoryLog) *PerformanceReport {
	report := &PerformanceReport{Entries: log.Len()}
	if log.Len() == 0 {
		return report
	}
	report.StartDate = log.Entries[0].Date
	report.EndDate = log.Entries[log.Len()-1].Date

	var returns []float64
	cash := 0.0
	wins := 0
	for _, e := range log.Entries {
		cash += e.CashWeight
		for _, p := range e.Positions {
			if p.ReturnPct == nil {
				continue
			}
			report.Positions++
			if *p.ReturnPct > 0 {
				wins++
			}
		}
		if e.Perf == nil {
			continue
		}
		r := *e.Perf
		returns = append(returns, r)
		if report.Best == nil || r > report.Best.Return {
			report.Best = &Extreme{Date: e.Date, Return: r}
		}
		if report.Worst == nil || r < report.Worst.Return {
			report.Worst = &Extreme{Date: e.Date, Return: r}
		}
	}
	report.AvgCashWeight = cash / float64(log.Len())
	if report.Positions > 0 {
		report.PositionHitRate = float64(wins) / float64(report.Positions)
	}

	report.Evaluated = len(returns)
	if len(returns) == 0 {
		return report
	}

	report.MeanReturn = stat.Mean(returns, nil)
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	report.MedianReturn = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	report.VaR95, report.CVaR95 = historicalVaR(sorted, TailConfidence)
	if len(returns) > 1 {
		report.Volatility = stat.StdDev(returns, nil)
	}
	if report.Volatility > 0 {
		report.Ratio = report.MeanReturn / report.Volatility
	}

	report.WinRate = calculateWinRate(returns)
	report.AvgWin, report.AvgLoss = calculateAvgWinLoss(returns)
	report.ProfitFactor = calculateProfitFactor(returns)

	a.logger.WithFields(map[string]interface{}{
		"evaluated":   report.Evaluated,
		"mean_return": report.MeanReturn,
		"win_rate":    report.WinRate,
	}).Debug("Performance analysis completed")

	return report
}

// calculateWinRate returns the share of positive returns
func calculateWinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

// calculateAvgWinLoss calculates average win and loss
func calculateAvgWinLoss(returns []float64) (float64, float64) {
	var sumWin, sumLoss float64
	var countWin, countLoss int

	for _, r := range returns {
		if r > 0 {
			sumWin += r
			countWin++
		} else if r < 0 {
			sumLoss += r
			countLoss++
		}
	}

	avgWin := 0.0
	if countWin > 0 {
		avgWin = sumWin / float64(countWin)
	}
	avgLoss := 0.0
	if countLoss > 0 {
		avgLoss = sumLoss / float64(countLoss)
	}
	return avgWin, avgLoss
}

// calculateProfitFactor is gross gains over gross losses; 0 without losses
func calculateProfitFactor(returns []float64) float64 {
	var totalWin, totalLoss float64

	for _, r := range returns {
		if r > 0 {
			totalWin += r
		} else if r < 0 {
			totalLoss += math.Abs(r)
		}
	}

	if totalLoss == 0 {
		return 0
	}
	return totalWin / totalLoss
}
