package workflow

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blindsight-ai/blindsight/core"
)

// ExecutionMode selects how the engine schedules the analysis stages.
type ExecutionMode int

const (
	// ModeSequential executes stages one at a time in declared order.
	ModeSequential ExecutionMode = iota + 1

	// ModeParallel fans the independent stages out over a worker pool and
	// joins them at a barrier before running dependent stages.
	ModeParallel
)

// String returns the mode's wire name.
func (m ExecutionMode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeParallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name to an ExecutionMode.
func ParseMode(name string) (ExecutionMode, error) {
	switch name {
	case "sequential":
		return ModeSequential, nil
	case "parallel":
		return ModeParallel, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// EngineConfig holds every knob of an orchestration engine. It is
// constructed once and passed into the engine and stage tasks by
// reference; stage logic performs no ambient configuration lookup.
type EngineConfig struct {
	// Mode selects sequential or parallel stage scheduling.
	Mode ExecutionMode

	// StageTimeout bounds each stage's generation call.
	StageTimeout time.Duration

	// RunTimeout is the hard wall-clock budget for a whole run.
	// Exceeding it fails the run with a timeout error per unfinished stage.
	RunTimeout time.Duration

	// PoolSize is the worker pool size for parallel mode.
	PoolSize int

	// TopK is the number of documents each stage retrieves.
	TopK int

	// Weights is the lexical/semantic blend for stage retrieval.
	Weights core.Weights

	// ScoreThreshold drops retrieval candidates below this combined score.
	ScoreThreshold float64

	// RerankEnabled turns on cross-scorer reranking of retrieval shortlists.
	RerankEnabled bool

	// RerankMultiplier sizes the rerank shortlist relative to TopK.
	RerankMultiplier int

	// SkipStages removes stages from the run entirely. Skipped stages do
	// not count toward progress.
	SkipStages []core.StageName
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		Mode:             ModeParallel,
		StageTimeout:     30 * time.Second,
		RunTimeout:       2 * time.Minute,
		PoolSize:         4,
		TopK:             5,
		Weights:          core.Weights{Lexical: 0.5, Semantic: 0.5},
		ScoreThreshold:   0.05,
		RerankEnabled:    false,
		RerankMultiplier: 2,
	}
}

// Validate checks the configuration for consistency.
func (c *EngineConfig) Validate() error {
	if c.Mode != ModeSequential && c.Mode != ModeParallel {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrUnknownMode)
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("%w: stage timeout must be positive", ErrInvalidConfig)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("%w: run timeout must be positive", ErrInvalidConfig)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("%w: pool size must be at least 1", ErrInvalidConfig)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, core.ErrInvalidTopK)
	}
	if math.Abs(c.Weights.Lexical+c.Weights.Semantic-1.0) > 1e-6 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, core.ErrInvalidWeights)
	}
	if c.RerankMultiplier < 1 {
		return fmt.Errorf("%w: rerank multiplier must be at least 1", ErrInvalidConfig)
	}
	for _, stage := range c.SkipStages {
		if !core.IsKnownStage(stage) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, core.ErrUnknownStage, stage)
		}
	}
	return nil
}

// fileConfig is the YAML representation of EngineConfig. Durations are
// written as strings ("30s", "2m").
type fileConfig struct {
	Mode             string   `yaml:"mode"`
	StageTimeout     string   `yaml:"stage_timeout"`
	RunTimeout       string   `yaml:"run_timeout"`
	PoolSize         *int     `yaml:"pool_size"`
	TopK             *int     `yaml:"top_k"`
	LexicalWeight    *float64 `yaml:"lexical_weight"`
	SemanticWeight   *float64 `yaml:"semantic_weight"`
	ScoreThreshold   *float64 `yaml:"score_threshold"`
	RerankEnabled    *bool    `yaml:"rerank_enabled"`
	RerankMultiplier *int     `yaml:"rerank_multiplier"`
	SkipStages       []string `yaml:"skip_stages"`
}

// LoadConfig reads an engine configuration from a YAML file, layering it
// over the defaults. Absent fields keep their default values.
func LoadConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (*EngineConfig, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg := DefaultConfig()

	if fc.Mode != "" {
		mode, err := ParseMode(fc.Mode)
		if err != nil {
			return nil, err
		}
		cfg.Mode = mode
	}
	if fc.StageTimeout != "" {
		d, err := time.ParseDuration(fc.StageTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: stage_timeout: %w", ErrInvalidConfig, err)
		}
		cfg.StageTimeout = d
	}
	if fc.RunTimeout != "" {
		d, err := time.ParseDuration(fc.RunTimeout)
		if err != nil {
			return nil, fmt.Errorf("%w: run_timeout: %w", ErrInvalidConfig, err)
		}
		cfg.RunTimeout = d
	}
	if fc.PoolSize != nil {
		cfg.PoolSize = *fc.PoolSize
	}
	if fc.TopK != nil {
		cfg.TopK = *fc.TopK
	}
	if fc.LexicalWeight != nil {
		cfg.Weights.Lexical = *fc.LexicalWeight
	}
	if fc.SemanticWeight != nil {
		cfg.Weights.Semantic = *fc.SemanticWeight
	}
	if fc.ScoreThreshold != nil {
		cfg.ScoreThreshold = *fc.ScoreThreshold
	}
	if fc.RerankEnabled != nil {
		cfg.RerankEnabled = *fc.RerankEnabled
	}
	if fc.RerankMultiplier != nil {
		cfg.RerankMultiplier = *fc.RerankMultiplier
	}
	for _, stage := range fc.SkipStages {
		cfg.SkipStages = append(cfg.SkipStages, core.StageName(stage))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
