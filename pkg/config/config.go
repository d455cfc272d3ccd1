package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Universe sources
const (
	UniverseKosdaqTop30 = "KOSDAQ_TOP_30"
	UniverseKospiTop30  = "KOSPI_TOP_30"
)

// Reasoning providers
const (
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"
	ProviderDisabled = "disabled"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	Universe  UniverseConfig
	Pipeline  PipelineConfig
	Reasoning ReasoningConfig

	// Optional backends
	Database DatabaseConfig
	Redis    RedisConfig

	// External APIs
	DART  DARTConfig
	Naver NaverConfig

	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// UniverseConfig selects the candidate universe
type UniverseConfig struct {
	Source string // KOSDAQ_TOP_30, KOSPI_TOP_30
	Size   int
}

// Market returns the market name implied by Source
func (u UniverseConfig) Market() string {
	if u.Source == UniverseKospiTop30 {
		return "KOSPI"
	}
	return "KOSDAQ"
}

// PipelineConfig holds run knobs
type PipelineConfig struct {
	Workers            int           // collector/scoring worker pool 크기
	MaxPortfolioStocks int           // 최대 보유 종목 수
	TrajectorySize     int           // K: trajectory 최대 길이
	StateDir           string        // trajectory / checkpoint / raw 저장 위치
	SourceTimeout      time.Duration // 외부 호출 1건당 timeout
	HistoryDays        int           // 기술적 지표 계산용 일봉 수
	StrategyProfile    string        // optional YAML profile path
}

// ReasoningConfig selects provider and models
type ReasoningConfig struct {
	Provider          string // openai, gemini, disabled
	OpenAIKey         string
	OpenAIBaseURL     string
	GeminiKey         string
	CheapModel        string
	StrongModel       string
	Timeout           time.Duration
	Temperature       float64
	MaxAttempts       int
	Backoff           []time.Duration
	RequestsPerSecond float64
}

// Enabled reports whether a reasoning provider is usable
func (r ReasoningConfig) Enabled() bool {
	return r.Provider != ProviderDisabled
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether the trajectory archive is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// DARTConfig holds DART (전자공시) API configuration
type DARTConfig struct {
	APIKey  string
	BaseURL string
}

// NaverConfig holds Naver Finance endpoints
type NaverConfig struct {
	BaseURL    string // finance.naver.com (HTML)
	ChartURL   string // fchart (일봉)
	MobileURL  string // m.stock.naver.com (news, index)
	PollingURL string // 현재가 batch
}

// ScheduleConfig holds the daily run schedule
type ScheduleConfig struct {
	Cron     string
	Timezone string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Universe: UniverseConfig{
			Source: strings.ToUpper(getEnv("UNIVERSE_SOURCE", UniverseKosdaqTop30)),
			Size:   getEnvAsInt("UNIVERSE_SIZE", 30),
		},

		Pipeline: PipelineConfig{
			Workers:            getEnvAsInt("PIPELINE_WORKERS", 4),
			MaxPortfolioStocks: getEnvAsInt("MAX_PORTFOLIO_STOCKS", 5),
			TrajectorySize:     getEnvAsInt("TRAJECTORY_SIZE", 30),
			StateDir:           getEnv("STATE_DIR", "state"),
			SourceTimeout:      getEnvAsDuration("SOURCE_TIMEOUT", "15s"),
			HistoryDays:        getEnvAsInt("HISTORY_DAYS", 120),
			StrategyProfile:    getEnv("STRATEGY_PROFILE", ""),
		},

		Reasoning: loadReasoning(),

		// Database (trajectory archive, optional)
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis (checkpoint cache, optional)
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_CHECKPOINT_TTL", "36h"),
		},

		DART: DARTConfig{
			APIKey:  getEnv("DART_API_KEY", ""),
			BaseURL: getEnv("DART_BASE_URL", "https://opendart.fss.or.kr/api"),
		},

		Naver: NaverConfig{
			BaseURL:    getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
			ChartURL:   getEnv("NAVER_CHART_URL", "https://fchart.stock.naver.com"),
			MobileURL:  getEnv("NAVER_MOBILE_URL", "https://m.stock.naver.com"),
			PollingURL: getEnv("NAVER_POLLING_URL", "https://polling.finance.naver.com"),
		},

		Schedule: ScheduleConfig{
			Cron:     getEnv("SCHEDULE_CRON", "0 30 18 * * 1-5"),
			Timezone: getEnv("SCHEDULE_TZ", "Asia/Seoul"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadReasoning resolves provider and models, honoring legacy names
// (LLM_DISABLED, OPENAI_API_KEY, OPENAI_MODEL)
func loadReasoning() ReasoningConfig {
	rc := ReasoningConfig{
		Provider:          strings.ToLower(getEnv("REASONING_PROVIDER", "")),
		OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiKey:         getEnv("GEMINI_API_KEY", ""),
		Timeout:           getEnvAsDuration("REASONING_TIMEOUT", "30s"),
		Temperature:       getEnvAsFloat("REASONING_TEMPERATURE", 0.2),
		MaxAttempts:       getEnvAsInt("REASONING_MAX_ATTEMPTS", 3),
		Backoff:           getEnvAsDurations("REASONING_BACKOFF", "2s,5s,10s"),
		RequestsPerSecond: getEnvAsFloat("REASONING_RPS", 2),
	}

	// provider 미지정 시 API key 로 결정
	if rc.Provider == "" {
		switch {
		case rc.OpenAIKey != "":
			rc.Provider = ProviderOpenAI
		case rc.GeminiKey != "":
			rc.Provider = ProviderGemini
		default:
			rc.Provider = ProviderDisabled
		}
	}

	// legacy switch
	if getEnvAsBool("LLM_DISABLED", false) {
		rc.Provider = ProviderDisabled
	}

	// key 없는 provider 는 비활성
	if rc.Provider == ProviderOpenAI && rc.OpenAIKey == "" {
		rc.Provider = ProviderDisabled
	}
	if rc.Provider == ProviderGemini && rc.GeminiKey == "" {
		rc.Provider = ProviderDisabled
	}

	cheap, strong := "gpt-4o-mini", "gpt-4o"
	if rc.Provider == ProviderGemini {
		cheap, strong = "gemini-2.5-flash", "gemini-2.5-pro"
	}
	if legacy := getEnv("OPENAI_MODEL", ""); legacy != "" && rc.Provider == ProviderOpenAI {
		cheap, strong = legacy, legacy
	}
	rc.CheapModel = getEnv("REASONING_CHEAP_MODEL", cheap)
	rc.StrongModel = getEnv("REASONING_STRONG_MODEL", strong)

	return rc
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Universe.Source != UniverseKosdaqTop30 && c.Universe.Source != UniverseKospiTop30 {
		return fmt.Errorf("UNIVERSE_SOURCE must be one of: %s, %s", UniverseKosdaqTop30, UniverseKospiTop30)
	}
	if c.Universe.Size <= 0 {
		return fmt.Errorf("UNIVERSE_SIZE must be positive")
	}

	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("PIPELINE_WORKERS must be positive")
	}
	if c.Pipeline.MaxPortfolioStocks <= 0 {
		return fmt.Errorf("MAX_PORTFOLIO_STOCKS must be positive")
	}
	if c.Pipeline.TrajectorySize <= 0 {
		return fmt.Errorf("TRAJECTORY_SIZE must be positive")
	}
	if c.Pipeline.StateDir == "" {
		return fmt.Errorf("STATE_DIR is required")
	}

	switch c.Reasoning.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderDisabled:
	default:
		return fmt.Errorf("REASONING_PROVIDER must be one of: openai, gemini, disabled")
	}
	if c.Reasoning.MaxAttempts <= 0 {
		return fmt.Errorf("REASONING_MAX_ATTEMPTS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBool also accepts "1"/"0" (legacy LLM_DISABLED=1)
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsDurations parses a comma-separated duration list ("2s,5s,10s")
func getEnvAsDurations(key string, defaultValue string) []time.Duration {
	parse := func(s string) ([]time.Duration, error) {
		var out []time.Duration
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			d, err := time.ParseDuration(part)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		return out, nil
	}

	if valueStr := os.Getenv(key); valueStr != "" {
		if out, err := parse(valueStr); err == nil {
			return out
		}
	}
	out, _ := parse(defaultValue)
	return out
}
