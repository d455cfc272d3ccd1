package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/pkg/config"
)

// Load reads YAML file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cfg); err != nil {
		return nil, nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, data, err
	}

	return &cfg, data, nil
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: encoding/json은 map 키를 정렬하므로 emphasis도 재현 가능
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewProfileSnapshot creates a snapshot for audit
func NewProfileSnapshot(cfg *Config, yamlData []byte) (*ProfileSnapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &ProfileSnapshot{
		ConfigHash: hash,
		ConfigYAML: string(yamlData),
		ProfileID:  cfg.Meta.ProfileID,
		Version:    cfg.Meta.Version,
		LoadedAt:   time.Now(),
	}, nil
}

// Apply overrides pipeline knobs in the environment config.
// Only non-zero profile values are applied.
func (c *Config) Apply(cfg *config.Config) {
	if c.Universe.Source != "" {
		cfg.Universe.Source = c.Universe.Source
	}
	if c.Universe.Size > 0 {
		cfg.Universe.Size = c.Universe.Size
	}
	if c.Portfolio.MaxPositions > 0 {
		cfg.Pipeline.MaxPortfolioStocks = c.Portfolio.MaxPositions
	}
	if c.Trajectory.Size > 0 {
		cfg.Pipeline.TrajectorySize = c.Trajectory.Size
	}
	if spec := c.CronSpec(); spec != "" {
		cfg.Schedule.Cron = spec
	}
}

// FallbackInstruments returns the profile's fallback universe, nil if unset
func (c *Config) FallbackInstruments() []contracts.Instrument {
	if len(c.Universe.Fallback) == 0 {
		return nil
	}
	out := make([]contracts.Instrument, 0, len(c.Universe.Fallback))
	for _, inst := range c.Universe.Fallback {
		out = append(out, contracts.Instrument{
			Code:   inst.Code,
			Name:   inst.Name,
			Market: strings.ToUpper(inst.Market),
		})
	}
	return out
}

// DefaultEmphasis returns the normalized default emphasis, nil if unset
func (c *Config) DefaultEmphasis() map[contracts.Dimension]float64 {
	if len(c.Strategy.DefaultEmphasis) == 0 {
		return nil
	}
	raw := make(map[contracts.Dimension]float64, len(c.Strategy.DefaultEmphasis))
	for k, v := range c.Strategy.DefaultEmphasis {
		if dim, ok := contracts.ParseDimension(k); ok {
			raw[dim] += v
		}
	}
	return contracts.NormalizeEmphasis(raw)
}

// CronSpec converts decision_time_local into a weekday cron spec with seconds
func (c *Config) CronSpec() string {
	if c.Meta.DecisionTimeLocal == "" {
		return ""
	}
	t, err := time.Parse("15:04", c.Meta.DecisionTimeLocal)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("0 %d %d * * 1-5", t.Minute(), t.Hour())
}
