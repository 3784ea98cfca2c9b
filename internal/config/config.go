// Package config loads the layered YAML configuration: hardcoded
// defaults, then `<root>/.config/codescope.yaml`, then CODESCOPE_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	cserrors "github.com/codescope/codescope/internal/errors"
	"gopkg.in/yaml.v3"
)

// IndexConfig configures tokenization and block construction.
type IndexConfig struct {
	// TabWidth is the column width a tab expands to when computing indent
	// levels. 0 means the default of 8 columns; only the indent width is
	// auto-detected per file.
	TabWidth int `yaml:"tab_width" json:"tab_width"`
	// MaxTokenLen drops tokens longer than this many runes.
	MaxTokenLen int `yaml:"max_token_len" json:"max_token_len"`
	// MaxBlockLines is validated on load but not passed to the block
	// adapters: the window fallback always uses 50-line windows with a
	// 10-line overlap.
	MaxBlockLines int `yaml:"max_block_lines" json:"max_block_lines"`
}

// TrainConfig configures the co-occurrence trainer (C6).
type TrainConfig struct {
	CoocWindowSize  int     `yaml:"cooc_window_size" json:"cooc_window_size"`
	SaliencePercent float64 `yaml:"salience_percent" json:"salience_percent"`
	SalienceMin     int     `yaml:"salience_min" json:"salience_min"`
	SalienceMax     int     `yaml:"salience_max" json:"salience_max"`
	// CoocMinCount is the minimum total co-occurrence weight a token must
	// accumulate to be eligible for neighbor computation.
	CoocMinCount int `yaml:"cooc_min_count" json:"cooc_min_count"`
	// CoocTopK is the number of neighbors kept per token after ranking.
	CoocTopK int `yaml:"cooc_top_k" json:"cooc_top_k"`
}

// QueryConfig configures expansion and scoring (C8/C9).
type QueryConfig struct {
	TopK          int     `yaml:"top_k" json:"top_k"`
	MaxCandidates int     `yaml:"max_candidates" json:"max_candidates"`
	ExpansionTopK int     `yaml:"expansion_top_k" json:"expansion_top_k"`
	MinSimilarity float64 `yaml:"min_similarity" json:"min_similarity"`
	MaxDFPercent  float64 `yaml:"max_df_percent" json:"max_df_percent"`
	// ClusterMode is "centroid" or "concentration".
	ClusterMode string `yaml:"cluster_mode" json:"cluster_mode"`
}

// PathsConfig configures which paths the scanner walks.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// PerformanceConfig tunes worker pool sizes and watch debounce.
type PerformanceConfig struct {
	IndexWorkers  int    `yaml:"index_workers" json:"index_workers"`
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// LoggingConfig configures the rotating file logger.
type LoggingConfig struct {
	Level         string `yaml:"level" json:"level"`
	FilePath      string `yaml:"file_path" json:"file_path"`
	MaxSizeMB     int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles      int    `yaml:"max_files" json:"max_files"`
	WriteToStderr bool   `yaml:"write_to_stderr" json:"write_to_stderr"`
}

// Config is the full codescope configuration, layered from defaults, the
// project's .config/codescope.yaml, then environment overrides.
type Config struct {
	Index       IndexConfig       `yaml:"index" json:"index"`
	Train       TrainConfig       `yaml:"train" json:"train"`
	Query       QueryConfig       `yaml:"query" json:"query"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
}

const configFileName = "codescope.yaml"

var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			TabWidth:      0,
			MaxTokenLen:   128,
			MaxBlockLines: 200,
		},
		Train: TrainConfig{
			CoocWindowSize:  5,
			SaliencePercent: 0.30,
			SalienceMin:     8,
			SalienceMax:     64,
			CoocMinCount:    2,
			CoocTopK:        32,
		},
		Query: QueryConfig{
			TopK:          20,
			MaxCandidates: 1000,
			ExpansionTopK: 8,
			MinSimilarity: 0.25,
			MaxDFPercent:  22.0,
			ClusterMode:   "centroid",
		},
		Paths: PathsConfig{
			Include: []string{},
			Exclude: defaultExcludePatterns,
		},
		Performance: PerformanceConfig{
			IndexWorkers:  runtime.NumCPU(),
			WatchDebounce: "500ms",
		},
		Logging: LoggingConfig{
			Level:         "info",
			FilePath:      "",
			MaxSizeMB:     10,
			MaxFiles:      3,
			WriteToStderr: false,
		},
	}
}

// Path returns the configuration file path for a workspace root.
func Path(root string) string {
	return filepath.Join(root, ".config", configFileName)
}

// Load loads configuration for the workspace rooted at dir, in order of
// increasing precedence: defaults, project config file, environment.
func Load(dir string) (*Config, error) {
	cfg := Default()

	path := Path(dir)
	if _, err := os.Stat(path); err == nil {
		if err := cfg.mergeFromFile(path); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, cserrors.Config("stat config file failed", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return cserrors.Config(fmt.Sprintf("read config file %s failed", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return cserrors.Config(fmt.Sprintf("parse config file %s failed", path), err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero values from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Index.TabWidth != 0 {
		c.Index.TabWidth = other.Index.TabWidth
	}
	if other.Index.MaxTokenLen != 0 {
		c.Index.MaxTokenLen = other.Index.MaxTokenLen
	}
	if other.Index.MaxBlockLines != 0 {
		c.Index.MaxBlockLines = other.Index.MaxBlockLines
	}

	if other.Train.CoocWindowSize != 0 {
		c.Train.CoocWindowSize = other.Train.CoocWindowSize
	}
	if other.Train.SaliencePercent != 0 {
		c.Train.SaliencePercent = other.Train.SaliencePercent
	}
	if other.Train.SalienceMin != 0 {
		c.Train.SalienceMin = other.Train.SalienceMin
	}
	if other.Train.SalienceMax != 0 {
		c.Train.SalienceMax = other.Train.SalienceMax
	}
	if other.Train.CoocMinCount != 0 {
		c.Train.CoocMinCount = other.Train.CoocMinCount
	}
	if other.Train.CoocTopK != 0 {
		c.Train.CoocTopK = other.Train.CoocTopK
	}

	if other.Query.TopK != 0 {
		c.Query.TopK = other.Query.TopK
	}
	if other.Query.MaxCandidates != 0 {
		c.Query.MaxCandidates = other.Query.MaxCandidates
	}
	if other.Query.ExpansionTopK != 0 {
		c.Query.ExpansionTopK = other.Query.ExpansionTopK
	}
	if other.Query.MinSimilarity != 0 {
		c.Query.MinSimilarity = other.Query.MinSimilarity
	}
	if other.Query.MaxDFPercent != 0 {
		c.Query.MaxDFPercent = other.Query.MaxDFPercent
	}
	if other.Query.ClusterMode != "" {
		c.Query.ClusterMode = other.Query.ClusterMode
	}

	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}

	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.WatchDebounce != "" {
		c.Performance.WatchDebounce = other.Performance.WatchDebounce
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
	if other.Logging.WriteToStderr {
		c.Logging.WriteToStderr = other.Logging.WriteToStderr
	}
}

// applyEnvOverrides applies CODESCOPE_* environment variable overrides,
// the highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CODESCOPE_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Performance.IndexWorkers = n
		}
	}
	if v := os.Getenv("CODESCOPE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CODESCOPE_CLUSTER_MODE"); v != "" {
		c.Query.ClusterMode = v
	}
	if v := os.Getenv("CODESCOPE_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Query.TopK = n
		}
	}
	if v := os.Getenv("CODESCOPE_MIN_SIMILARITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			c.Query.MinSimilarity = f
		}
	}
}

// Validate returns a *cserrors.Error of KindConfig if any value is out of
// range.
func (c *Config) Validate() error {
	if c.Index.MaxTokenLen <= 0 {
		return cserrors.Config(fmt.Sprintf("index.max_token_len must be positive, got %d", c.Index.MaxTokenLen), nil)
	}
	if c.Index.MaxBlockLines <= 0 {
		return cserrors.Config(fmt.Sprintf("index.max_block_lines must be positive, got %d", c.Index.MaxBlockLines), nil)
	}
	if c.Train.CoocWindowSize <= 0 {
		return cserrors.Config(fmt.Sprintf("train.cooc_window_size must be positive, got %d", c.Train.CoocWindowSize), nil)
	}
	if c.Train.SaliencePercent < 0 || c.Train.SaliencePercent > 1 {
		return cserrors.Config(fmt.Sprintf("train.salience_percent must be between 0 and 1, got %f", c.Train.SaliencePercent), nil)
	}
	if c.Train.SalienceMin > c.Train.SalienceMax {
		return cserrors.Config(fmt.Sprintf("train.salience_min (%d) must not exceed train.salience_max (%d)", c.Train.SalienceMin, c.Train.SalienceMax), nil)
	}
	if c.Train.CoocMinCount < 0 {
		return cserrors.Config(fmt.Sprintf("train.cooc_min_count must not be negative, got %d", c.Train.CoocMinCount), nil)
	}
	if c.Train.CoocTopK <= 0 {
		return cserrors.Config(fmt.Sprintf("train.cooc_top_k must be positive, got %d", c.Train.CoocTopK), nil)
	}
	if c.Query.TopK <= 0 {
		return cserrors.Config(fmt.Sprintf("query.top_k must be positive, got %d", c.Query.TopK), nil)
	}
	if c.Query.MaxCandidates <= 0 {
		return cserrors.Config(fmt.Sprintf("query.max_candidates must be positive, got %d", c.Query.MaxCandidates), nil)
	}
	if c.Query.MinSimilarity < 0 || c.Query.MinSimilarity > 1 {
		return cserrors.Config(fmt.Sprintf("query.min_similarity must be between 0 and 1, got %f", c.Query.MinSimilarity), nil)
	}
	if c.Query.MaxDFPercent <= 0 || c.Query.MaxDFPercent > 100 {
		return cserrors.Config(fmt.Sprintf("query.max_df_percent must be between 0 and 100, got %f", c.Query.MaxDFPercent), nil)
	}
	mode := strings.ToLower(c.Query.ClusterMode)
	if mode != "centroid" && mode != "concentration" {
		return cserrors.Config(fmt.Sprintf("query.cluster_mode must be 'centroid' or 'concentration', got %s", c.Query.ClusterMode), nil)
	}
	level := strings.ToLower(c.Logging.Level)
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[level] {
		return cserrors.Config(fmt.Sprintf("logging.level must be debug/info/warn/error, got %s", c.Logging.Level), nil)
	}
	return nil
}

// WriteYAML writes the configuration to path, creating parent directories
// as needed.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return cserrors.Config("marshal config failed", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cserrors.Config("create config directory failed", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return cserrors.Config("write config file failed", err)
	}
	return nil
}
