package contracts

import "time"

// EntryStatus is the trajectory entry state
// PROPOSED → BACKFILLED (역방향 전이 없음)
type EntryStatus string

const (
	StatusProposed   EntryStatus = "PROPOSED"
	StatusBackfilled EntryStatus = "BACKFILLED"
)

// DateLayout is the run-date format used as cache and trajectory key
const DateLayout = "2006-01-02"

// FormatDate formats a run date
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// TrajectoryPosition is a decided position plus its realized outcome
type TrajectoryPosition struct {
	Code         string   `json:"instrument"`
	Name         string   `json:"name,omitempty"`
	Weight       float64  `json:"weight"`
	BuyPrice     float64  `json:"buy_price"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	ReturnPct    *float64 `json:"return_pct,omitempty"`
}

// TrajectoryEntry is one run's decision and its backfilled performance
// ⭐ SSOT: 피드백 루프의 유일한 장기 상태
type TrajectoryEntry struct {
	Date         string                `json:"date"`
	RunID        string                `json:"run_id,omitempty"`
	Strategy     string                `json:"strategy"`
	Emphasis     map[Dimension]float64 `json:"emphasis,omitempty"`
	Positions    []TrajectoryPosition  `json:"allocation"`
	CashWeight   float64               `json:"cash_weight"`
	Perf         *float64              `json:"perf,omitempty"` // 가중 평균 실현 수익률 (%)
	Status       EntryStatus           `json:"status"`
	ConfigHash   string                `json:"config_hash,omitempty"`
	BackfilledAt *time.Time            `json:"backfilled_at,omitempty"`
}

// NewTrajectoryEntry builds a PROPOSED entry from a run's strategy and allocation
func NewTrajectoryEntry(date string, strategy Strategy, alloc Allocation) TrajectoryEntry {
	positions := make([]TrajectoryPosition, 0, len(alloc.Positions))
	for _, p := range alloc.Positions {
		positions = append(positions, TrajectoryPosition{
			Code:     p.Code,
			Name:     p.Name,
			Weight:   p.Weight,
			BuyPrice: p.BuyPrice,
		})
	}
	return TrajectoryEntry{
		Date:       date,
		Strategy:   strategy.Text,
		Emphasis:   strategy.Emphasis,
		Positions:  positions,
		CashWeight: alloc.CashWeight,
		Status:     StatusProposed,
	}
}

// TrajectoryLog is the time-ordered (oldest first) bounded history
type TrajectoryLog struct {
	Entries []TrajectoryEntry `json:"entries"`
}

// Len returns the number of entries
func (l *TrajectoryLog) Len() int {
	return len(l.Entries)
}

// Tail returns the most recent min(n, len) entries, most-recent-first
func (l *TrajectoryLog) Tail(n int) []TrajectoryEntry {
	if n > len(l.Entries) {
		n = len(l.Entries)
	}
	if n <= 0 {
		return nil
	}
	out := make([]TrajectoryEntry, 0, n)
	for i := len(l.Entries) - 1; i >= len(l.Entries)-n; i-- {
		out = append(out, l.Entries[i])
	}
	return out
}

// Latest returns the most recent entry
func (l *TrajectoryLog) Latest() (*TrajectoryEntry, bool) {
	if len(l.Entries) == 0 {
		return nil, false
	}
	return &l.Entries[len(l.Entries)-1], true
}

// LatestBefore returns the most recent entry dated strictly before date
func (l *TrajectoryLog) LatestBefore(date string) (*TrajectoryEntry, bool) {
	for i := len(l.Entries) - 1; i >= 0; i-- {
		if l.Entries[i].Date < date {
			return &l.Entries[i], true
		}
	}
	return nil, false
}
