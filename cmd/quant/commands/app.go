package commands

import (
	"context"
	"fmt"

	"github.com/wonny/threes/backend/internal/brain"
	"github.com/wonny/threes/backend/internal/checkpoint"
	"github.com/wonny/threes/backend/internal/collector"
	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/internal/external/dart"
	"github.com/wonny/threes/backend/internal/external/krx"
	"github.com/wonny/threes/backend/internal/external/naver"
	"github.com/wonny/threes/backend/internal/reasoning"
	"github.com/wonny/threes/backend/internal/scoring"
	"github.com/wonny/threes/backend/internal/selection"
	"github.com/wonny/threes/backend/internal/strategy"
	"github.com/wonny/threes/backend/internal/strategyconfig"
	"github.com/wonny/threes/backend/internal/trajectory"
	"github.com/wonny/threes/backend/internal/universe"
	"github.com/wonny/threes/backend/pkg/config"
	"github.com/wonny/threes/backend/pkg/database"
	"github.com/wonny/threes/backend/pkg/httputil"
	"github.com/wonny/threes/backend/pkg/logger"
	"github.com/wonny/threes/backend/pkg/metrics"
	"github.com/wonny/threes/backend/pkg/redis"
)

// naverRPS paces scraping; Naver throttles bursts from a single host
const naverRPS = 5

// settings is the resolved configuration of one process
type settings struct {
	cfg        *config.Config
	log        *logger.Logger
	profile    *strategyconfig.Config // nil = 프로필 없음
	configHash string
}

// loadSettings reads env config, applies the optional strategy profile and
// builds the logger
func loadSettings() (*settings, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if stateDir != "" {
		cfg.Pipeline.StateDir = stateDir
	}

	s := &settings{cfg: cfg}

	path := profileFile
	if path == "" {
		path = cfg.Pipeline.StrategyProfile
	}
	var warnings []strategyconfig.Warning
	if path != "" {
		profile, data, err := strategyconfig.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load strategy profile %s: %w", path, err)
		}
		snap, err := strategyconfig.NewProfileSnapshot(profile, data)
		if err != nil {
			return nil, fmt.Errorf("hash strategy profile: %w", err)
		}
		profile.Apply(cfg)
		s.profile = profile
		s.configHash = snap.ConfigHash
		warnings = strategyconfig.Warn(profile)
	}

	s.log = logger.New(cfg)
	if s.profile != nil {
		s.log.WithFields(map[string]interface{}{
			"profile": s.profile.Meta.ProfileID,
			"version": s.profile.Meta.Version,
			"hash":    s.configHash[:12],
		}).Info("Strategy profile loaded")
	}
	for _, w := range warnings {
		s.log.WithField("code", w.Code).Warn(w.Message)
	}
	return s, nil
}

// app holds the wired pipeline components for one process
type app struct {
	*settings

	metrics      *metrics.Recorder // nil when METRICS_ENABLED=false
	naver        *naver.Client
	checkpoint   *checkpoint.Cache
	trajectory   trajectory.Store
	selections   *selection.Repository // nil without DATABASE_URL
	orchestrator *brain.Orchestrator

	closers []func()
}

// Close releases connections in reverse order of creation
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires every stage of the pipeline
// ⭐ SSOT: 의존성 조립은 이 함수에서만
func newApp(ctx context.Context) (*app, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	cfg, log := s.cfg, s.log

	a := &app{settings: s}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	// 0. Persistent stores (checkpoint, trajectory, selection archive)
	if err := a.openStores(ctx); err != nil {
		return nil, err
	}

	// 1. External clients (소비자별 HTTP 클라이언트 분리: transport/rate limit 설정이 다름)
	a.naver = naver.NewClient(
		httputil.NewWithTimeout(cfg, log, cfg.Pipeline.SourceTimeout).WithRateLimit(naverRPS, 2),
		cfg.Naver, log)
	krxClient := krx.NewClient(httputil.NewWithTimeout(cfg, log, cfg.Pipeline.SourceTimeout), log)
	dartClient := dart.NewClient(httputil.NewWithTimeout(cfg, log, cfg.Pipeline.SourceTimeout), cfg.DART, log)

	// 2. S1: Universe
	ucfg := universe.Config{
		Market:       cfg.Universe.Market(),
		Size:         cfg.Universe.Size,
		ExcludeSPAC:  true,
		ExcludeAdmin: true,
	}
	if s.profile != nil {
		ucfg.Fallback = s.profile.FallbackInstruments()
	}
	resolver := universe.NewResolver(ucfg, log,
		universe.NewNaverRanking(a.naver),
		universe.NewKRXRanking(krxClient, nil),
	)

	// 3. S2: Collector
	source := collector.NewNaverSource(a.naver, dartClient, cfg.Pipeline.HistoryDays, log)
	col := collector.NewCollector(source, collector.Config{
		Workers:       cfg.Pipeline.Workers,
		SourceTimeout: cfg.Pipeline.SourceTimeout,
	}, a.metrics, log)

	// 4. Reasoning service
	svc, err := reasoning.NewFromConfig(ctx, cfg, a.metrics, log)
	if err != nil {
		return nil, fmt.Errorf("init reasoning: %w", err)
	}

	// 5. S3: Scoring + checkpoint cache
	scorer := scoring.NewEngine(svc, a.checkpoint, scoring.Config{Workers: cfg.Pipeline.Workers}, a.metrics, log)

	// 6. S4: Strategy
	stratCfg := strategy.Config{DefaultText: contracts.DefaultStrategyText}
	offerSize := selection.DefaultOfferSize
	if s.profile != nil {
		if s.profile.Strategy.DefaultText != "" {
			stratCfg.DefaultText = s.profile.Strategy.DefaultText
		}
		stratCfg.DefaultEmphasis = s.profile.DefaultEmphasis()
		if s.profile.Portfolio.OfferSize > 0 {
			offerSize = s.profile.Portfolio.OfferSize
		}
	}
	loop := strategy.NewLoop(svc, stratCfg, a.metrics, log)
	overview := strategy.NewOverviewBuilder(a.naver, krxClient, a.naver, log)

	// 7. S5: Selection
	selector := selection.NewEngine(svc, selection.Config{
		MaxPositions: cfg.Pipeline.MaxPortfolioStocks,
		OfferSize:    offerSize,
	}, a.metrics, log)

	// 8. S6: Trajectory
	tracker := trajectory.NewTracker(a.naver, cfg.Pipeline.TrajectorySize, a.metrics, log)

	deps := brain.Deps{
		Universe:   resolver,
		Collector:  col,
		Scorer:     scorer,
		Overview:   overview,
		Strategy:   loop,
		Screener:   selection.NewScreener(log),
		Selector:   selector,
		Tracker:    tracker,
		Store:      a.trajectory,
		Metrics:    a.metrics,
		StateDir:   cfg.Pipeline.StateDir,
		Workers:    cfg.Pipeline.Workers,
		ConfigHash: s.configHash,
	}
	if dartClient.Enabled() {
		deps.Preloader = source
	}
	if a.selections != nil {
		deps.Archive = a.selections
	}
	a.orchestrator = brain.NewOrchestrator(deps, log)

	ok = true
	return a, nil
}

// newStoreApp opens only the persistent stores; for inspection commands
// that never run the pipeline
func newStoreApp(ctx context.Context) (*app, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	a := &app{settings: s}
	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	cache, err := a.newCheckpoint(ctx)
	if err != nil {
		return err
	}
	a.checkpoint = cache
	return a.newTrajectoryStore(ctx)
}

// newCheckpoint picks Redis when enabled, else the state-dir file
func (a *app) newCheckpoint(ctx context.Context) (*checkpoint.Cache, error) {
	var store checkpoint.Store = checkpoint.NewFileStore(a.cfg.Pipeline.StateDir)
	if a.cfg.Redis.Enabled {
		rc, err := redis.New(ctx, a.cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rc.Close() })
		store = checkpoint.NewRedisStore(redis.NewCache(rc, "threes"), a.cfg.Redis.TTL)
	}
	return checkpoint.New(store, a.metrics, a.log), nil
}

// newTrajectoryStore opens the file store and, with DATABASE_URL, mirrors
// it into Postgres
func (a *app) newTrajectoryStore(ctx context.Context) error {
	file := trajectory.NewFileStore(a.cfg.Pipeline.StateDir)
	if !a.cfg.Database.Enabled() {
		a.trajectory = file
		return nil
	}

	db, err := database.New(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	a.trajectory = trajectory.NewMultiStore(file, trajectory.NewPostgresStore(db.Pool), a.log)
	a.selections = selection.NewRepository(db.Pool)
	return nil
}
