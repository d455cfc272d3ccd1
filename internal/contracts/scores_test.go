package contracts

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeutralScoreVector(t *testing.T) {
	v := NeutralScoreVector()
	require.Len(t, v, 6)
	for _, d := range Dimensions {
		assert.Equal(t, ScoreNeutral, v[d], d)
	}
	assert.True(t, v.Valid())
	assert.Equal(t, 30, v.Sum())
}

func TestScoreVector_Valid(t *testing.T) {
	v := NeutralScoreVector()
	v[DimNewsImpact] = 11
	assert.False(t, v.Valid())

	v = NeutralScoreVector()
	delete(v, DimVolatilityRisk)
	assert.False(t, v.Valid())

	v = NeutralScoreVector()
	v[Dimension("extra")] = 5
	assert.False(t, v.Valid())
}

func TestScoreVector_Weighted(t *testing.T) {
	v := NeutralScoreVector()
	v[DimVolatilityRisk] = 9
	v[DimPriceMomentum] = 1

	// volatility_risk 는 반전하지 않는다: 안정적인 종목이 더 높은 점수
	stable := v.Weighted(map[Dimension]float64{DimVolatilityRisk: 1})
	assert.InDelta(t, 9.0, stable, 1e-9)

	mixed := v.Weighted(map[Dimension]float64{DimVolatilityRisk: 0.5, DimPriceMomentum: 0.5})
	assert.InDelta(t, 5.0, mixed, 1e-9)
}

func TestClampScoreFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 1},
		{-3, 1},
		{1, 1},
		{7.4, 7},
		{7.5, 8},
		{10, 10},
		{42, 10},
		{math.NaN(), 5},
		{math.Inf(1), 10},
		{math.Inf(-1), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampScoreFloat(tt.in), "ClampScoreFloat(%v)", tt.in)
	}
}

func TestParseDimension(t *testing.T) {
	d, ok := ParseDimension(" Price Momentum ")
	assert.True(t, ok)
	assert.Equal(t, DimPriceMomentum, d)

	d, ok = ParseDimension("volatility-risk")
	assert.True(t, ok)
	assert.Equal(t, DimVolatilityRisk, d)

	_, ok = ParseDimension("profitability")
	assert.False(t, ok)
}

func TestNormalizeEmphasis(t *testing.T) {
	got := NormalizeEmphasis(map[Dimension]float64{
		DimVolatilityRisk:  3,
		DimFinancialHealth: 1,
		DimNewsImpact:      -2,
		Dimension("bogus"): 5,
	})
	require.Len(t, got, 2)
	assert.InDelta(t, 0.75, got[DimVolatilityRisk], 1e-9)
	assert.InDelta(t, 0.25, got[DimFinancialHealth], 1e-9)

	assert.Nil(t, NormalizeEmphasis(map[Dimension]float64{DimNewsImpact: 0}))
	assert.Nil(t, NormalizeEmphasis(nil))
}

func TestSortedDimensions(t *testing.T) {
	got := SortedDimensions(map[Dimension]float64{
		DimNewsImpact:     0.2,
		DimVolatilityRisk: 0.6,
		DimPriceMomentum:  0.2,
	})
	assert.Equal(t, []Dimension{DimVolatilityRisk, DimNewsImpact, DimPriceMomentum}, got)
}
