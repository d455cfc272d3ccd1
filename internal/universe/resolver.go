package universe

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/logger"
)

// SPAC 판별을 위한 정규식 패턴
var spacPattern = regexp.MustCompile(`(?i)(스팩|SPAC|스펙|\d+호$|제\d+호)`)

// Ranked is one market-cap ranking row from a ranking source
type Ranked struct {
	Code      string
	Name      string
	Market    string
	MarketCap int64  // 원
	Kind      string // "stock", "etf", ... (빈 값이면 stock 취급)
}

// RankingSource returns the top instruments of a market by market cap
type RankingSource interface {
	Name() string
	Top(ctx context.Context, market string, n int) ([]Ranked, error)
}

// Config holds universe resolution settings
type Config struct {
	Market       string // KOSPI, KOSDAQ
	Size         int
	ExcludeSPAC  bool
	ExcludeAdmin bool
	Fallback     []contracts.Instrument
}

// DefaultFallback is the hand-maintained list used when every ranking
// source fails
var DefaultFallback = []contracts.Instrument{
	{Code: "005930", Name: "삼성전자", Market: "KOSPI"},
	{Code: "000660", Name: "SK하이닉스", Market: "KOSPI"},
	{Code: "373220", Name: "LG에너지솔루션", Market: "KOSPI"},
	{Code: "005380", Name: "현대차", Market: "KOSPI"},
	{Code: "068270", Name: "셀트리온", Market: "KOSPI"},
}

// Resolver builds the candidate universe for a run
// ⭐ SSOT: S1 유니버스 생성
type Resolver struct {
	sources []RankingSource
	config  Config
	logger  *logger.Logger
	now     func() time.Time
}

// NewResolver creates a resolver trying sources in order
func NewResolver(config Config, log *logger.Logger, sources ...RankingSource) *Resolver {
	if config.Size <= 0 {
		config.Size = 30
	}
	if len(config.Fallback) == 0 {
		config.Fallback = DefaultFallback
	}
	return &Resolver{
		sources: sources,
		config:  config,
		logger:  log.WithModule("universe"),
		now:     time.Now,
	}
}

// Resolve returns the ordered, deduplicated universe.
// Source failures fall through to the next source and finally the
// fallback list; only an empty result is an error.
func (r *Resolver) Resolve(ctx context.Context) (*contracts.Universe, error) {
	for _, src := range r.sources {
		// 필터로 빠질 종목을 감안해 여유 있게 조회
		rows, err := src.Top(ctx, r.config.Market, r.config.Size*2)
		if err != nil {
			r.logger.WithError(err).WithField("source", src.Name()).Warn("Ranking source failed")
			continue
		}

		u := r.build(rows, src.Name())
		if u.Count() == 0 {
			r.logger.WithField("source", src.Name()).Warn("Ranking source returned no eligible instruments")
			continue
		}

		r.logger.WithFields(map[string]interface{}{
			"source":   src.Name(),
			"count":    u.Count(),
			"excluded": len(u.Excluded),
		}).Info("Universe resolved")
		return u, nil
	}

	u := &contracts.Universe{
		Date:        r.now(),
		Instruments: dedupe(r.config.Fallback),
		Excluded:    map[string]string{},
		Source:      "fallback",
	}
	if u.Count() == 0 {
		return nil, contracts.ErrUniverseEmpty
	}

	r.logger.WithField("count", u.Count()).Warn("Using fallback universe")
	return u, nil
}

func (r *Resolver) build(rows []Ranked, source string) *contracts.Universe {
	u := &contracts.Universe{
		Date:        r.now(),
		Instruments: make([]contracts.Instrument, 0, r.config.Size),
		Excluded:    make(map[string]string),
		Source:      source,
	}

	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		code := strings.TrimSpace(row.Code)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true

		if reason := r.checkExclusion(row); reason != "" {
			u.Excluded[code] = reason
			continue
		}
		if len(u.Instruments) >= r.config.Size {
			continue
		}

		market := row.Market
		if market == "" {
			market = r.config.Market
		}
		u.Instruments = append(u.Instruments, contracts.Instrument{
			Code:   code,
			Name:   strings.TrimSpace(row.Name),
			Market: market,
		})
	}
	return u
}

// checkExclusion returns the exclusion reason, empty if eligible
func (r *Resolver) checkExclusion(row Ranked) string {
	if row.Kind != "" && !strings.EqualFold(row.Kind, "stock") {
		return fmt.Sprintf("비주식 (%s)", row.Kind)
	}
	if r.config.ExcludeAdmin && isAdminStock(row.Name) {
		return "관리종목"
	}
	if r.config.ExcludeSPAC && isSPAC(row.Name) {
		return "SPAC"
	}
	return ""
}

// dedupe keeps the first occurrence of each code
func dedupe(in []contracts.Instrument) []contracts.Instrument {
	seen := make(map[string]bool, len(in))
	out := make([]contracts.Instrument, 0, len(in))
	for _, inst := range in {
		if inst.Code == "" || seen[inst.Code] {
			continue
		}
		seen[inst.Code] = true
		out = append(out, inst)
	}
	return out
}

func isSPAC(name string) bool {
	return spacPattern.MatchString(name)
}

// 관리종목은 종목명에 표식이 붙음
func isAdminStock(name string) bool {
	return strings.Contains(name, "관리") || strings.Contains(name, "*")
}
