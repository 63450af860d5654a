// Package config loads and validates the pipeline configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-pathbench/pkg/noderank"
	"github.com/dd0wney/cluso-pathbench/pkg/pool"
	"github.com/dd0wney/cluso-pathbench/pkg/ranking"
	"github.com/dd0wney/cluso-pathbench/pkg/validation"
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

func init() {
	validation.RegisterValidation("quota_count", func(s string) bool {
		c, err := pool.ParseCount(s)
		return err == nil && (c.IsAll() || c.Take(1) > 0)
	})
	validation.RegisterValidation("node_modes", func(s string) bool {
		_, err := noderank.ParseModes(s)
		return err == nil
	})
}

// QuotaConfig is the selective policy budget. Abstract and Templates are
// "*" or a positive integer.
type QuotaConfig struct {
	Abstract  string `yaml:"aq" validate:"quota_count"`
	Templates string `yaml:"tq" validate:"quota_count"`
	Real      int    `yaml:"rq" validate:"min=1"`
}

// FixedConfig holds the fixed policy's parallel lists: pattern Q numbers,
// templates per pattern and real queries per template.
type FixedConfig struct {
	QNumbers  []int `yaml:"q_numbers"`
	Templates []int `yaml:"templates"`
	Real      []int `yaml:"real"`
}

// NodesConfig controls node selection from the edge rankings.
type NodesConfig struct {
	Modes    string `yaml:"modes" validate:"node_modes"`
	PerLabel int    `yaml:"per_label" validate:"min=0"` // 0 follows quota.rq
}

// PathsConfig names the artifacts a run reads and writes.
type PathsConfig struct {
	Templates   string `yaml:"templates"`
	Patterns    string `yaml:"patterns"`
	Edges       string `yaml:"edges"`
	Mappings    string `yaml:"mappings"`
	Log         string `yaml:"log"`
	Index       string `yaml:"index"`
	RankingsDir string `yaml:"rankings_dir"`
	Output      string `yaml:"output"`
}

// PublishConfig uploads a pool run's output directory to S3. Empty URL
// disables publishing; credentials default to the AWS chain.
type PublishConfig struct {
	URL       string `yaml:"url" validate:"omitempty,startswith=s3://"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint" validate:"omitempty,url"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// PipelineConfig is the full configuration of a run. It is passed by value.
type PipelineConfig struct {
	Scoring     string        `yaml:"scoring" validate:"oneof=mean-paths max-median"`
	Selection   string        `yaml:"selection" validate:"oneof=selective fixed"`
	Quota       QuotaConfig   `yaml:"quota"`
	Fixed       FixedConfig   `yaml:"fixed"`
	Nodes       NodesConfig   `yaml:"nodes"`
	Paths       PathsConfig   `yaml:"paths"`
	Publish     PublishConfig `yaml:"publish"`
	CacheDir    string        `yaml:"cache_dir"`
	CacheSize   int           `yaml:"cache_size" validate:"min=0"`
	MetricsFile string        `yaml:"metrics_file"`
	PostgresURL string        `yaml:"postgres_url"`
	WaitStable  time.Duration `yaml:"wait_stable" validate:"min=0"`
	LogLevel    string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// Default returns the configuration used when no file is given.
func Default() PipelineConfig {
	return PipelineConfig{
		Scoring:   string(ranking.MeanPaths),
		Selection: string(pool.Selective),
		Quota: QuotaConfig{
			Abstract:  "*",
			Templates: "*",
			Real:      3,
		},
		Nodes: NodesConfig{
			Modes: string(noderank.ModeMax),
		},
		Paths: PathsConfig{
			Templates: "consultas.txt",
			Patterns:  "patrones.txt",
			Mappings:  "nodos.txt",
			Log:       "result.txt",
			Index:     "query_info.json",
			Output:    "out",
		},
		CacheSize: 16,
		LogLevel:  "info",
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (PipelineConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	cfg = cfg.Normalize()
	return cfg, cfg.Validate()
}

// Normalize lower-cases enumerations. Nodes.PerLabel is left as given so a
// later change of quota.rq still carries over to PerLabel.
func (c PipelineConfig) Normalize() PipelineConfig {
	c.Scoring = strings.ToLower(strings.TrimSpace(c.Scoring))
	c.Selection = strings.ToLower(strings.TrimSpace(c.Selection))
	c.Nodes.Modes = strings.ToLower(strings.TrimSpace(c.Nodes.Modes))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	return c
}

// Validate checks field values and cross-field rules, collecting every
// violation.
func (c PipelineConfig) Validate() error {
	cv := validation.NewConfigValidator("PipelineConfig").Struct(&c)

	fixed := c.Selection == string(pool.Fixed)
	cv.When(fixed, func(cv *validation.ConfigValidator) {
		cv.Custom("Fixed", func() error {
			if len(c.Fixed.QNumbers) == 0 {
				return errors.New("fixed selection needs at least one q number")
			}
			return nil
		})
		cv.SameLength([]string{"fixed.q_numbers", "fixed.templates", "fixed.real"},
			len(c.Fixed.QNumbers), len(c.Fixed.Templates), len(c.Fixed.Real))
		cv.UniqueInts("Fixed.QNumbers", c.Fixed.QNumbers)
		cv.EachPositive("Fixed.QNumbers", c.Fixed.QNumbers)
		cv.EachPositive("Fixed.Templates", c.Fixed.Templates)
		cv.EachPositive("Fixed.Real", c.Fixed.Real)
	})
	cv.Custom("Publish", func() error {
		if (c.Publish.AccessKey == "") != (c.Publish.SecretKey == "") {
			return errors.New("access_key and secret_key must be set together")
		}
		return nil
	})

	if err := cv.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ScoringPolicy returns the parsed scoring policy.
func (c PipelineConfig) ScoringPolicy() ranking.ScoringPolicy {
	p, err := ranking.ParseScoringPolicy(c.Scoring)
	if err != nil {
		return ranking.MeanPaths
	}
	return p
}

// SelectionType returns the parsed selection policy.
func (c PipelineConfig) SelectionType() pool.SelectionType {
	t, err := pool.ParseSelectionType(c.Selection)
	if err != nil {
		return pool.Selective
	}
	return t
}

// PoolQuota returns the selective quota. Invalid counts fall back to All;
// Validate reports them.
func (c PipelineConfig) PoolQuota() pool.Quota {
	aq, err := pool.ParseCount(c.Quota.Abstract)
	if err != nil {
		aq = pool.All
	}
	tq, err := pool.ParseCount(c.Quota.Templates)
	if err != nil {
		tq = pool.All
	}
	return pool.Quota{Abstract: aq, Templates: tq, Real: c.Quota.Real}
}

// FixedQuotas returns the fixed policy's per-Q-number quotas.
func (c PipelineConfig) FixedQuotas() map[int]pool.FixedQuota {
	n := min(len(c.Fixed.QNumbers), len(c.Fixed.Templates), len(c.Fixed.Real))
	out := make(map[int]pool.FixedQuota, n)
	for i := 0; i < n; i++ {
		out[c.Fixed.QNumbers[i]] = pool.FixedQuota{Templates: c.Fixed.Templates[i], Real: c.Fixed.Real[i]}
	}
	return out
}

// Modes returns the parsed node selection modes.
func (c PipelineConfig) Modes() []noderank.Mode {
	m, err := noderank.ParseModes(c.Nodes.Modes)
	if err != nil {
		return []noderank.Mode{noderank.ModeMax}
	}
	return m
}

// PerLabel returns the number of nodes selected per label: Nodes.PerLabel
// when set, otherwise quota.rq.
func (c PipelineConfig) PerLabel() int {
	return validation.DefaultOrInt(c.Nodes.PerLabel, c.Quota.Real)
}
