// Package config provides configuration management for the no-show pipeline
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/paveg/noshow/internal/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// GridConfig is the hyper-parameter grid searched by the tuned strategy.
// A max_depth of 0 means unlimited depth.
type GridConfig struct {
	NEstimators     []int `json:"n_estimators" yaml:"n_estimators"`
	MaxDepth        []int `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit []int `json:"min_samples_split" yaml:"min_samples_split"`
	MinSamplesLeaf  []int `json:"min_samples_leaf" yaml:"min_samples_leaf"`
}

// Size returns the number of parameter combinations in the grid
func (g GridConfig) Size() int {
	return len(g.NEstimators) * len(g.MaxDepth) * len(g.MinSamplesSplit) * len(g.MinSamplesLeaf)
}

// Config represents the configuration of one pipeline run
type Config struct {
	// Input Configuration
	DatasetPath     string `json:"dataset_path" yaml:"dataset_path"`         // CSV file to analyze
	UnknownCategory string `json:"unknown_category" yaml:"unknown_category"` // drop, fail or keep

	// Modelling Configuration
	Seed           int64      `json:"seed" yaml:"seed"`                       // Seed for splits, bootstraps and SMOTE
	TestSize       float64    `json:"test_size" yaml:"test_size"`             // Held-out fraction (0.0-1.0)
	BaselineTrees  int        `json:"baseline_trees" yaml:"baseline_trees"`   // Trees in the baseline and weighted forests
	CVFolds        int        `json:"cv_folds" yaml:"cv_folds"`               // Folds per grid candidate
	SMOTENeighbors int        `json:"smote_neighbors" yaml:"smote_neighbors"` // k for synthetic sample generation
	Grid           GridConfig `json:"grid" yaml:"grid"`                       // Tuned strategy search space
	RecallSearch   bool       `json:"recall_search" yaml:"recall_search"`     // Also run a recall-scored search
	SampleIndex    int        `json:"sample_index" yaml:"sample_index"`       // Test row used for the sample prediction

	// Parallel Processing Configuration
	WorkerPoolSize int `json:"worker_pool_size" yaml:"worker_pool_size"` // Number of worker goroutines (0 = auto-detect)

	// Output Configuration
	ReportFormat  string `json:"report_format" yaml:"report_format"`   // text or json
	ExportCleaned string `json:"export_cleaned" yaml:"export_cleaned"` // Cleaned table CSV path, empty to skip
	Charts        bool   `json:"charts" yaml:"charts"`                 // Render the text charts
	ChartWidth    int    `json:"chart_width" yaml:"chart_width"`       // Widest bar in characters

	// Debugging Configuration
	MetricsCollection bool   `json:"metrics_collection" yaml:"metrics_collection"` // Record per-stage timings
	LogLevel          string `json:"log_level" yaml:"log_level"`                   // logrus level name
	LogFormat         string `json:"log_format" yaml:"log_format"`                 // text or json
}

// Default configuration values
const (
	DefaultDatasetPath     = "KaggleV2-May-2016.csv"
	DefaultUnknownCategory = "drop"
	DefaultSeed            = 42
	DefaultTestSize        = 0.2
	DefaultBaselineTrees   = 100
	DefaultCVFolds         = 3
	DefaultSMOTENeighbors  = 5
	DefaultSampleIndex     = 10
	DefaultReportFormat    = "text"
	DefaultChartWidth      = 40
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"

	envPrefix = "NOSHOW_"
)

// DefaultGrid returns the 24-point search space of the tuned strategy
func DefaultGrid() GridConfig {
	return GridConfig{
		NEstimators:     []int{100, 200},
		MaxDepth:        []int{0, 10, 20},
		MinSamplesSplit: []int{2, 5},
		MinSamplesLeaf:  []int{1, 2},
	}
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		DatasetPath:     DefaultDatasetPath,
		UnknownCategory: DefaultUnknownCategory,

		Seed:           DefaultSeed,
		TestSize:       DefaultTestSize,
		BaselineTrees:  DefaultBaselineTrees,
		CVFolds:        DefaultCVFolds,
		SMOTENeighbors: DefaultSMOTENeighbors,
		Grid:           DefaultGrid(),
		RecallSearch:   false,
		SampleIndex:    DefaultSampleIndex,

		WorkerPoolSize: 0, // Auto-detect

		ReportFormat:  DefaultReportFormat,
		ExportCleaned: "",
		Charts:        true,
		ChartWidth:    DefaultChartWidth,

		MetricsCollection: true,
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
	}
}

// Validate validates the configuration and returns a ConfigError if invalid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatasetPath) == "" {
		return errors.NewConfigError("dataset_path", "must not be empty")
	}

	switch c.UnknownCategory {
	case "drop", "fail", "keep":
	default:
		return errors.NewConfigError("unknown_category",
			fmt.Sprintf("must be one of drop, fail, keep, got %q", c.UnknownCategory))
	}

	if c.TestSize <= 0.0 || c.TestSize >= 1.0 {
		return errors.NewConfigError("test_size", fmt.Sprintf("must be between 0 and 1, got %g", c.TestSize))
	}

	if c.BaselineTrees <= 0 {
		return errors.NewConfigError("baseline_trees", fmt.Sprintf("must be positive, got %d", c.BaselineTrees))
	}

	if c.CVFolds < 2 {
		return errors.NewConfigError("cv_folds", fmt.Sprintf("must be at least 2, got %d", c.CVFolds))
	}

	if c.SMOTENeighbors <= 0 {
		return errors.NewConfigError("smote_neighbors", fmt.Sprintf("must be positive, got %d", c.SMOTENeighbors))
	}

	if err := c.Grid.validate(); err != nil {
		return err
	}

	if c.SampleIndex < 0 {
		return errors.NewConfigError("sample_index", fmt.Sprintf("must be non-negative, got %d", c.SampleIndex))
	}

	if c.WorkerPoolSize < 0 {
		return errors.NewConfigError("worker_pool_size", fmt.Sprintf("must be non-negative, got %d", c.WorkerPoolSize))
	}

	if !isFormat(c.ReportFormat) {
		return errors.NewConfigError("report_format", fmt.Sprintf("must be text or json, got %q", c.ReportFormat))
	}

	if c.ChartWidth < 10 {
		return errors.NewConfigError("chart_width", fmt.Sprintf("must be at least 10, got %d", c.ChartWidth))
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.NewConfigError("log_level", err.Error())
	}

	if !isFormat(c.LogFormat) {
		return errors.NewConfigError("log_format", fmt.Sprintf("must be text or json, got %q", c.LogFormat))
	}

	return nil
}

func (g GridConfig) validate() error {
	axes := []struct {
		field  string
		values []int
		min    int
	}{
		{"grid.n_estimators", g.NEstimators, 1},
		{"grid.max_depth", g.MaxDepth, 0},
		{"grid.min_samples_split", g.MinSamplesSplit, 2},
		{"grid.min_samples_leaf", g.MinSamplesLeaf, 1},
	}
	for _, axis := range axes {
		if len(axis.values) == 0 {
			return errors.NewConfigError(axis.field, "must list at least one value")
		}
		for _, v := range axis.values {
			if v < axis.min {
				return errors.NewConfigError(axis.field, fmt.Sprintf("values must be at least %d, got %d", axis.min, v))
			}
		}
	}
	return nil
}

func isFormat(s string) bool {
	return s == "text" || s == "json"
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.DatasetPath == "" {
		c.DatasetPath = defaults.DatasetPath
	}
	if c.UnknownCategory == "" {
		c.UnknownCategory = defaults.UnknownCategory
	}
	if c.TestSize == 0.0 {
		c.TestSize = defaults.TestSize
	}
	if c.BaselineTrees == 0 {
		c.BaselineTrees = defaults.BaselineTrees
	}
	if c.CVFolds == 0 {
		c.CVFolds = defaults.CVFolds
	}
	if c.SMOTENeighbors == 0 {
		c.SMOTENeighbors = defaults.SMOTENeighbors
	}
	if len(c.Grid.NEstimators) == 0 {
		c.Grid.NEstimators = defaults.Grid.NEstimators
	}
	if len(c.Grid.MaxDepth) == 0 {
		c.Grid.MaxDepth = defaults.Grid.MaxDepth
	}
	if len(c.Grid.MinSamplesSplit) == 0 {
		c.Grid.MinSamplesSplit = defaults.Grid.MinSamplesSplit
	}
	if len(c.Grid.MinSamplesLeaf) == 0 {
		c.Grid.MinSamplesLeaf = defaults.Grid.MinSamplesLeaf
	}
	if c.ReportFormat == "" {
		c.ReportFormat = defaults.ReportFormat
	}
	if c.ChartWidth == 0 {
		c.ChartWidth = defaults.ChartWidth
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaults.LogFormat
	}

	// Note: Seed, SampleIndex and boolean fields are not defaulted here since
	// their zero values are meaningful. Loaders decode onto NewConfig() so
	// omitted keys keep their defaults.

	return c
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	config := NewConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, errors.NewConfigError("json", fmt.Sprintf("parsing JSON configuration: %v", err))
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON and YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, errors.NewIOError("LoadConfig", filename, err)
	}

	config := NewConfig()
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, errors.NewConfigError("file", fmt.Sprintf("unsupported config file format: %s", ext))
	}

	if err != nil {
		return Config{}, errors.NewConfigError("file", fmt.Sprintf("parsing config file %s: %v", filename, err))
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from NOSHOW_* environment variables on
// top of the defaults
func LoadFromEnv() Config {
	return NewConfig().WithEnv()
}

// WithEnv returns a copy of c overridden by NOSHOW_* environment variables.
// Values that fail to parse are ignored.
func (c Config) WithEnv() Config {
	envString("DATASET_PATH", &c.DatasetPath)
	envString("UNKNOWN_CATEGORY", &c.UnknownCategory)
	envInt64("SEED", &c.Seed)
	envFloat("TEST_SIZE", &c.TestSize)
	envInt("BASELINE_TREES", &c.BaselineTrees)
	envInt("CV_FOLDS", &c.CVFolds)
	envInt("SMOTE_NEIGHBORS", &c.SMOTENeighbors)
	envBool("RECALL_SEARCH", &c.RecallSearch)
	envInt("SAMPLE_INDEX", &c.SampleIndex)
	envInt("WORKER_POOL_SIZE", &c.WorkerPoolSize)
	envString("REPORT_FORMAT", &c.ReportFormat)
	envString("EXPORT_CLEANED", &c.ExportCleaned)
	envBool("CHARTS", &c.Charts)
	envInt("CHART_WIDTH", &c.ChartWidth)
	envBool("METRICS_COLLECTION", &c.MetricsCollection)
	envString("LOG_LEVEL", &c.LogLevel)
	envString("LOG_FORMAT", &c.LogFormat)
	return c
}

func envString(key string, dst *string) {
	if val := os.Getenv(envPrefix + key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(envPrefix + key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			*dst = parsed
		}
	}
}

func envInt64(key string, dst *int64) {
	if val := os.Getenv(envPrefix + key); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = parsed
		}
	}
}

func envFloat(key string, dst *float64) {
	if val := os.Getenv(envPrefix + key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = parsed
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(envPrefix + key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			*dst = parsed
		}
	}
}

// SystemInfo contains system information for configuration validation
type SystemInfo struct {
	CPUCount     int
	Architecture string
	OSType       string
}

// GetSystemInfo returns system information for configuration validation
func GetSystemInfo() SystemInfo {
	return SystemInfo{
		CPUCount:     runtime.NumCPU(),
		Architecture: runtime.GOARCH,
		OSType:       runtime.GOOS,
	}
}

// ConfigValidator validates and provides recommendations for configuration
type ConfigValidator struct {
	systemInfo SystemInfo
}

// NewConfigValidator creates a new configuration validator
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		systemInfo: GetSystemInfo(),
	}
}

// Validate validates a configuration, resolves auto-detected values and
// returns warnings about settings likely to hurt the run
func (cv *ConfigValidator) Validate(config Config) (Config, []string, error) {
	var warnings []string
	validated := config

	if err := config.Validate(); err != nil {
		return Config{}, warnings, err
	}

	if config.WorkerPoolSize > cv.systemInfo.CPUCount*2 {
		warnings = append(warnings,
			fmt.Sprintf("Worker pool size (%d) exceeds 2x CPU count (%d), may cause contention",
				config.WorkerPoolSize, cv.systemInfo.CPUCount))
	}

	if fits := config.Grid.Size() * config.CVFolds; fits > 200 {
		warnings = append(warnings,
			fmt.Sprintf("Grid search will fit %d forests, expect a long run", fits))
	}

	if config.WorkerPoolSize == 0 {
		validated.WorkerPoolSize = cv.systemInfo.CPUCount
		warnings = append(warnings,
			fmt.Sprintf("Auto-setting worker pool size to %d (CPU count)",
				validated.WorkerPoolSize))
	}

	return validated, warnings, nil
}
