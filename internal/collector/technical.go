package collector

import (
	"fmt"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/threes/backend/internal/contracts"
)

// MinHistory is the minimum number of daily closes for a technical bundle
const MinHistory = 20

// Bar is one daily OHLCV row, oldest first in a series
type Bar struct {
	Close  float64
	Volume int64
}

// ComputeTechnical derives the technical bundle from daily bars (oldest first).
// Bars with a non-positive close are skipped.
func ComputeTechnical(bars []Bar) (*contracts.TechnicalBundle, error) {
	closes := make([]float64, 0, len(bars))
	var lastVolume int64
	for _, b := range bars {
		if b.Close <= 0 {
			continue
		}
		closes = append(closes, b.Close)
		lastVolume = b.Volume
	}

	n := len(closes)
	if n < MinHistory {
		return nil, fmt.Errorf("insufficient history: %d closes (need %d)", n, MinHistory)
	}

	price := closes[n-1]
	tb := &contracts.TechnicalBundle{
		Price:     price,
		PrevClose: closes[n-2],
		Return1D:  pctReturn(closes, 1),
		Return5D:  pctReturn(closes, 5),
		Return20D: pctReturn(closes, 20),
		MA5:       lastOf(talib.Sma(closes, 5)),
		MA20:      lastOf(talib.Sma(closes, 20)),
		Volume:    lastVolume,
		Days:      n,
	}

	if n >= 60 {
		tb.MA60 = lastOf(talib.Sma(closes, 60))
	}
	if tb.MA20 > 0 {
		tb.MA20Gap = (price - tb.MA20) / tb.MA20 * 100
	}

	// RSI 는 period+1 개 이상 필요
	if n > 14 {
		tb.RSI14 = lastOf(talib.Rsi(closes, 14))
	}

	// MACD(12,26,9) 는 34 거래일 이상 필요
	if n >= 34 {
		macd, signal, _ := talib.Macd(closes, 12, 26, 9)
		tb.MACD = lastOf(macd)
		tb.MACDSignal = lastOf(signal)
	}

	tb.Volatility20D = volatility(closes, 20)
	return tb, nil
}

// pctReturn returns the % change over the last `days` closes, or from the
// first close when the series is shorter
func pctReturn(closes []float64, days int) float64 {
	n := len(closes)
	base := 0
	if n-1-days >= 0 {
		base = n - 1 - days
	}
	if closes[base] <= 0 {
		return 0
	}
	return (closes[n-1]/closes[base] - 1) * 100
}

// volatility is the std-dev (%) of the last `window` daily returns
func volatility(closes []float64, window int) float64 {
	start := len(closes) - window - 1
	if start < 0 {
		start = 0
	}
	rets := make([]float64, 0, window)
	for i := start + 1; i < len(closes); i++ {
		rets = append(rets, (closes[i]/closes[i-1]-1)*100)
	}
	if len(rets) < 2 {
		return 0
	}
	return stat.StdDev(rets, nil)
}

func lastOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}
