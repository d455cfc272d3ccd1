package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrajectoryLog_Tail(t *testing.T) {
	log := &TrajectoryLog{}
	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08", "2024-01-09"} {
		log.Entries = append(log.Entries, TrajectoryEntry{Date: d})
	}

	tail := log.Tail(5)
	require.Len(t, tail, 5)
	assert.Equal(t, "2024-01-09", tail[0].Date)
	assert.Equal(t, "2024-01-03", tail[4].Date)

	assert.Len(t, log.Tail(100), 7)
	assert.Nil(t, log.Tail(0))
	assert.Nil(t, (&TrajectoryLog{}).Tail(5))
}

func TestTrajectoryLog_Latest(t *testing.T) {
	log := &TrajectoryLog{}
	_, ok := log.Latest()
	assert.False(t, ok)

	log.Entries = []TrajectoryEntry{{Date: "2024-01-01"}, {Date: "2024-01-02"}}
	latest, ok := log.Latest()
	require.True(t, ok)
	assert.Equal(t, "2024-01-02", latest.Date)

	before, ok := log.LatestBefore("2024-01-02")
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", before.Date)

	_, ok = log.LatestBefore("2024-01-01")
	assert.False(t, ok)
}

func TestNewTrajectoryEntry(t *testing.T) {
	strategy := Strategy{Text: "prefer stable names", Emphasis: map[Dimension]float64{DimVolatilityRisk: 1}}
	alloc := Allocation{
		Positions:  []Position{{Code: "005930", Name: "삼성전자", Weight: 0.6, BuyPrice: 1000}},
		CashWeight: 0.4,
	}

	entry := NewTrajectoryEntry("2024-01-02", strategy, alloc)
	assert.Equal(t, StatusProposed, entry.Status)
	assert.Equal(t, "prefer stable names", entry.Strategy)
	require.Len(t, entry.Positions, 1)
	assert.Equal(t, 1000.0, entry.Positions[0].BuyPrice)
	assert.Nil(t, entry.Positions[0].ReturnPct)
	assert.Nil(t, entry.Perf)
}

func TestTrajectoryEntry_JSONShape(t *testing.T) {
	ret := 10.0
	entry := TrajectoryEntry{
		Date:     "2024-01-02",
		Strategy: "s",
		Positions: []TrajectoryPosition{
			{Code: "005930", Weight: 1, BuyPrice: 1000, ReturnPct: &ret},
			{Code: "000660", Weight: 0, BuyPrice: 500},
		},
		Status: StatusProposed,
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	positions, ok := raw["allocation"].([]interface{})
	require.True(t, ok)
	first := positions[0].(map[string]interface{})
	second := positions[1].(map[string]interface{})
	assert.Equal(t, "005930", first["instrument"])
	assert.Equal(t, 10.0, first["return_pct"])
	_, has := second["return_pct"]
	assert.False(t, has)
	_, has = raw["perf"]
	assert.False(t, has)
}
