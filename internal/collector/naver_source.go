package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/internal/external/dart"
	"github.com/wonny/threes/backend/internal/external/naver"
	"github.com/wonny/threes/backend/pkg/logger"
)

const (
	newsPerInstrument = 10
	flowDays          = 5
	disclosureDays    = 14
	disclosurePages   = 10
)

// NaverSource implements contracts.DataSource over Naver Finance, with DART
// disclosures folded into the news bundle when a key is configured
type NaverSource struct {
	naver       *naver.Client
	dart        *dart.Client
	historyDays int
	logger      *logger.Logger
	now         func() time.Time

	mu          sync.RWMutex
	disclosures map[string][]dart.Disclosure
}

// NewNaverSource creates the production data source. dartClient may be nil.
func NewNaverSource(naverClient *naver.Client, dartClient *dart.Client, historyDays int, log *logger.Logger) *NaverSource {
	if historyDays <= 0 {
		historyDays = 120
	}
	return &NaverSource{
		naver:       naverClient,
		dart:        dartClient,
		historyDays: historyDays,
		logger:      log.WithModule("naver_source"),
		now:         time.Now,
	}
}

// PreloadDisclosures sweeps recent DART filings for the universe once per
// run. Failures only mean news bundles carry no disclosures.
func (s *NaverSource) PreloadDisclosures(ctx context.Context, insts []contracts.Instrument, asOf time.Time) {
	if !s.dart.Enabled() {
		return
	}
	want := make(map[string]bool, len(insts))
	for _, inst := range insts {
		want[inst.Code] = true
	}

	found, err := s.dart.FetchRecentByStock(ctx, asOf.AddDate(0, 0, -disclosureDays), asOf, disclosurePages, want)
	if err != nil {
		s.logger.WithError(err).Warn("DART preload failed")
		return
	}

	s.mu.Lock()
	s.disclosures = found
	s.mu.Unlock()
}

func (s *NaverSource) disclosuresFor(code string) []dart.Disclosure {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disclosures[code]
}

// FetchTechnical computes the technical bundle from daily chart history
func (s *NaverSource) FetchTechnical(ctx context.Context, inst contracts.Instrument) (*contracts.TechnicalBundle, error) {
	to := s.now()
	prices, err := s.naver.FetchPrices(ctx, inst.Code, to.AddDate(0, 0, -s.historyDays), to)
	if err != nil {
		return nil, err
	}

	bars := make([]Bar, 0, len(prices))
	for _, p := range prices {
		bars = append(bars, Bar{Close: p.ClosePrice, Volume: p.Volume})
	}
	return ComputeTechnical(bars)
}

// FetchFundamental maps the Naver item page ratios
func (s *NaverSource) FetchFundamental(ctx context.Context, inst contracts.Instrument) (*contracts.FundamentalBundle, error) {
	fd, err := s.naver.FetchFundamental(ctx, inst.Code)
	if err != nil {
		return nil, err
	}

	fb := &contracts.FundamentalBundle{
		PER:             fd.PER,
		PBR:             fd.PBR,
		EPS:             fd.EPS,
		BPS:             fd.BPS,
		ROE:             fd.ROE,
		DebtRatio:       fd.DebtRatio,
		DividendYield:   fd.DividendYield,
		MarketCap:       fd.MarketCap * 100_000_000, // 억 → 원
		QuarterRevenue:  fd.QuarterRevenue,
		QuarterOpProfit: fd.QuarterOpProfit,
		ConsensusTarget: fd.TargetPrice,
		Opinion:         fd.Opinion,
	}
	for _, d := range s.disclosuresFor(inst.Code) {
		if dart.IsMajorDisclosure(d.ReportNm) {
			fb.Disclosures = append(fb.Disclosures, d.ReportNm)
		}
	}

	if fb.IsEmpty() {
		return nil, fmt.Errorf("no fundamental ratios for %s", inst.Code)
	}
	return fb, nil
}

// FetchFlow sums recent foreign/institution net buying
func (s *NaverSource) FetchFlow(ctx context.Context, inst contracts.Instrument) (*contracts.FlowBundle, error) {
	rows, err := s.naver.FetchInvestorFlow(ctx, inst.Code, flowDays)
	if err != nil {
		return nil, err
	}
	return flowFromRows(rows)
}

func flowFromRows(rows []naver.InvestorFlowData) (*contracts.FlowBundle, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no investor flow rows")
	}

	// rows: 최신 → 과거
	fb := &contracts.FlowBundle{
		ForeignNet:     rows[0].ForeignNet,
		InstitutionNet: rows[0].InstitutionNet,
	}
	for i, r := range rows {
		if i >= flowDays {
			break
		}
		fb.ForeignNet5D += r.ForeignNet
		fb.InstitutionNet5D += r.InstitutionNet
		fb.Days++
	}
	return fb, nil
}

// FetchNews returns recent articles plus DART filings, newest first
func (s *NaverSource) FetchNews(ctx context.Context, inst contracts.Instrument) (*contracts.NewsBundle, error) {
	articles, err := s.naver.FetchNews(ctx, inst.Code, newsPerInstrument)
	disclosures := s.disclosuresFor(inst.Code)
	if err != nil && len(disclosures) == 0 {
		return nil, err
	}

	nb := &contracts.NewsBundle{Items: make([]contracts.NewsItem, 0, len(articles)+len(disclosures))}
	for _, a := range articles {
		nb.Items = append(nb.Items, contracts.NewsItem{
			Title:       a.Title,
			Body:        a.Body,
			Source:      a.Office,
			PublishedAt: a.PublishedAt,
		})
	}
	for _, d := range disclosures {
		nb.Items = append(nb.Items, contracts.NewsItem{
			Title:       "[공시] " + d.ReportNm,
			Source:      "DART",
			PublishedAt: d.ReceivedAt(),
		})
	}

	sort.SliceStable(nb.Items, func(i, j int) bool {
		return nb.Items[i].PublishedAt.After(nb.Items[j].PublishedAt)
	})
	return nb, nil
}

// FetchCurrentPrices implements contracts.PriceSource
func (s *NaverSource) FetchCurrentPrices(ctx context.Context, codes []string) (map[string]float64, error) {
	return s.naver.FetchCurrentPrices(ctx, codes)
}
