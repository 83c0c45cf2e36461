// Package config provides pipeline configuration with support for command-line flags,
// environment variables, .env files and a YAML config file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/listenupapp/liveplan/internal/validation"
)

// EnvPrefix prefixes every environment variable the pipeline reads.
const EnvPrefix = "LIVEPLAN_"

// Config holds the pipeline configuration.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Logger   LoggerConfig   `yaml:"logger"`
	Paths    PathsConfig    `yaml:"paths"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Fallback FallbackConfig `yaml:"fallback"`
	Report   ReportConfig   `yaml:"report"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `yaml:"environment" validate:"oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `yaml:"level" validate:"loglevel"`
	// Format overrides the environment default (json in production, pretty otherwise).
	Format string `yaml:"format" validate:"omitempty,oneof=json pretty"`
}

// PathsConfig holds input and output locations.
type PathsConfig struct {
	DataDir   string `yaml:"data_dir"`
	OutputDir string `yaml:"output_dir" validate:"required"`
	// Database defaults to {output}/liveplan.db.
	Database string `yaml:"database"`
	// Files overrides input file names by source, e.g. orders: olist_orders.csv.
	Files map[string]string `yaml:"files" validate:"dive,keys,required,endkeys,required"`
}

// PipelineConfig holds run behavior.
type PipelineConfig struct {
	Seed        uint64 `yaml:"seed"`
	SampleLimit int    `yaml:"sample_limit" validate:"gte=0"`
	// Strict turns any degradation into a failed run.
	Strict bool `yaml:"strict"`
	// UseSample ignores the data directory and runs on the demo dataset.
	UseSample bool `yaml:"use_sample"`
	Bundle    bool `yaml:"bundle"`
}

// FallbackConfig selects how missing metrics are filled.
type FallbackConfig struct {
	Mode string `yaml:"mode" validate:"oneof=random midpoint"`
	// Seed drives random mode; zero reuses the pipeline seed.
	Seed uint64 `yaml:"seed"`
}

// ReportConfig holds report and chart settings.
type ReportConfig struct {
	Title       string `yaml:"title" validate:"required,max=120"`
	Language    string `yaml:"language" validate:"bcp47_language_tag"`
	Charts      bool   `yaml:"charts"`
	ChartWidth  int    `yaml:"chart_width" validate:"min=320,max=4000"`
	ChartHeight int    `yaml:"chart_height" validate:"min=240,max=4000"`
}

// Defaults returns the lowest-precedence configuration.
func Defaults() Config {
	return Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Paths: PathsConfig{
			DataDir:   "data",
			OutputDir: "output",
		},
		Pipeline: PipelineConfig{
			Seed:        42,
			SampleLimit: 500,
			Bundle:      true,
		},
		Fallback: FallbackConfig{Mode: "random"},
		Report: ReportConfig{
			Title:       "Livestream Programming Strategy",
			Language:    "en",
			Charts:      true,
			ChartWidth:  1000,
			ChartHeight: 600,
		},
	}
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables (LIVEPLAN_*).
// 3. .env file.
// 4. YAML config file.
// 5. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("liveplan", flag.ContinueOnError)

	configFile := fs.String("config", "", "Path to YAML config file")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, pretty)")

	dataDir := fs.String("data-dir", "", "Directory holding the input CSV files")
	outputDir := fs.String("output-dir", "", "Directory for workbooks, report and charts")
	database := fs.String("database", "", "Run store path (default: {output}/liveplan.db)")

	seed := fs.String("seed", "", "Seed for demo data and random fallbacks (default: 42)")
	sampleLimit := fs.String("sample-limit", "", "Maximum sessions synthesized from orders, 0 for all (default: 500)")
	strict := fs.String("strict", "", "Fail the run on any degraded stage")
	useSample := fs.String("sample", "", "Run on the built-in demo dataset")
	bundle := fs.String("bundle", "", "Write the zip bundle (default: true)")

	fallbackMode := fs.String("fallback-mode", "", "Fill policy for missing metrics (random, midpoint)")

	title := fs.String("title", "", "Report title")
	language := fs.String("language", "", "Report language tag for number formatting (default: en)")
	charts := fs.String("charts", "", "Render chart images (default: true)")
	chartWidth := fs.String("chart-width", "", "Chart width in pixels (default: 1000)")
	chartHeight := fs.String("chart-height", "", "Chart height in pixels (default: 600)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	base := Defaults()
	if path := getConfigValue(*configFile, "CONFIG", ""); path != "" {
		if err := loadYAMLFile(path, &base); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", base.App.Environment),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", base.Logger.Level),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", base.Logger.Format),
		},
		Paths: PathsConfig{
			DataDir:   getConfigValue(*dataDir, "DATA_DIR", base.Paths.DataDir),
			OutputDir: getConfigValue(*outputDir, "OUTPUT_DIR", base.Paths.OutputDir),
			Database:  getConfigValue(*database, "DATABASE", base.Paths.Database),
			Files:     base.Paths.Files,
		},
		Pipeline: PipelineConfig{
			Strict:    getBoolConfigValue(*strict, "STRICT", base.Pipeline.Strict),
			UseSample: getBoolConfigValue(*useSample, "SAMPLE", base.Pipeline.UseSample),
			Bundle:    getBoolConfigValue(*bundle, "BUNDLE", base.Pipeline.Bundle),
		},
		Fallback: FallbackConfig{
			Mode: getConfigValue(*fallbackMode, "FALLBACK_MODE", base.Fallback.Mode),
			Seed: base.Fallback.Seed,
		},
		Report: ReportConfig{
			Title:    getConfigValue(*title, "REPORT_TITLE", base.Report.Title),
			Language: getConfigValue(*language, "REPORT_LANGUAGE", base.Report.Language),
			Charts:   getBoolConfigValue(*charts, "CHARTS", base.Report.Charts),
		},
	}

	var err error
	if cfg.Pipeline.Seed, err = getUintConfigValue(*seed, "SEED", base.Pipeline.Seed); err != nil {
		return nil, err
	}
	if cfg.Pipeline.SampleLimit, err = getIntConfigValue(*sampleLimit, "SAMPLE_LIMIT", base.Pipeline.SampleLimit); err != nil {
		return nil, err
	}
	if cfg.Report.ChartWidth, err = getIntConfigValue(*chartWidth, "CHART_WIDTH", base.Report.ChartWidth); err != nil {
		return nil, err
	}
	if cfg.Report.ChartHeight, err = getIntConfigValue(*chartHeight, "CHART_HEIGHT", base.Report.ChartHeight); err != nil {
		return nil, err
	}
	if cfg.Fallback.Seed == 0 {
		cfg.Fallback.Seed = cfg.Pipeline.Seed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}
	if c.Paths.DataDir == "" && !c.Pipeline.UseSample {
		return errors.New("data directory is required unless the demo dataset is used")
	}
	return validation.New().Validate(c)
}

// DatabasePath returns the run store location.
func (c *Config) DatabasePath() string {
	if c.Paths.Database != "" {
		return c.Paths.Database
	}
	return filepath.Join(c.Paths.OutputDir, "liveplan.db")
}

// loadYAMLFile overlays a YAML config file onto cfg. Keys absent from the
// file keep their current values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandPaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir, ""); err != nil {
		return err
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir, ""); err != nil {
		return err
	}
	if c.Paths.Database, err = expandPath(c.Paths.Database, ""); err != nil {
		return err
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
// envKey is given without the LIVEPLAN_ prefix.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable (including values from .env).
	if envValue := os.Getenv(EnvPrefix + envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Config file or default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) (int, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), strValue, err)
	}
	return v, nil
}

// getUintConfigValue returns a uint64 from flag, env var, or default.
func getUintConfigValue(flagValue, envKey string, defaultValue uint64) (uint64, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseUint(strValue, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), strValue, err)
	}
	return v, nil
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
