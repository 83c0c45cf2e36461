package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/listenupapp/liveplan/internal/errors"
)

func validConfig() *Config {
	cfg := Defaults()
	cfg.Paths.DataDir = "/data"
	cfg.Paths.OutputDir = "/output"
	return &cfg
}

// loadArgs points the .env lookup at an empty temp dir so the caller's
// working directory cannot leak values into the test.
func loadArgs(t *testing.T, args ...string) []string {
	t.Helper()
	return append([]string{"-env-file", filepath.Join(t.TempDir(), ".env")}, args...)
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"INFO", true},
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"fallback mode", func(c *Config) { c.Fallback.Mode = "zero" }, "fallback.mode"},
		{"chart width", func(c *Config) { c.Report.ChartWidth = 10 }, "report.chart_width"},
		{"chart height", func(c *Config) { c.Report.ChartHeight = 9000 }, "report.chart_height"},
		{"sample limit", func(c *Config) { c.Pipeline.SampleLimit = -1 }, "pipeline.sample_limit"},
		{"title", func(c *Config) { c.Report.Title = "" }, "report.title"},
		{"language", func(c *Config) { c.Report.Language = "not a tag" }, "report.language"},
		{"output", func(c *Config) { c.Paths.OutputDir = "" }, "paths.output_dir"},
		{"log format", func(c *Config) { c.Logger.Format = "xml" }, "logger.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.True(t, domainerrors.As(err, &domainErr))
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
			assert.Contains(t, domainErr.Details, tt.field)
		})
	}
}

func TestValidate_DataDirOptionalWithSample(t *testing.T) {
	cfg := validConfig()
	cfg.Paths.DataDir = ""
	assert.Error(t, cfg.Validate())

	cfg.Pipeline.UseSample = true
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(loadArgs(t))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, uint64(42), cfg.Pipeline.Seed)
	assert.Equal(t, uint64(42), cfg.Fallback.Seed)
	assert.Equal(t, 500, cfg.Pipeline.SampleLimit)
	assert.Equal(t, "random", cfg.Fallback.Mode)
	assert.True(t, cfg.Pipeline.Bundle)
	assert.True(t, filepath.IsAbs(cfg.Paths.OutputDir))
	assert.Equal(t, filepath.Join(cfg.Paths.OutputDir, "liveplan.db"), cfg.DatabasePath())
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "liveplan.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
logger:
  level: debug
pipeline:
  seed: 7
  sample_limit: 100
fallback:
  mode: midpoint
report:
  title: From YAML
  chart_width: 800
paths:
  files:
    orders: olist_orders.csv
`), 0o644))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("LIVEPLAN_SAMPLE_LIMIT=200\nLIVEPLAN_REPORT_TITLE=From dotenv\n"), 0o644))
	t.Setenv("LIVEPLAN_REPORT_TITLE", "From env")
	t.Setenv("LIVEPLAN_SAMPLE_LIMIT", "")

	cfg, err := Load([]string{"-config", yamlPath, "-env-file", envPath, "-chart-width", "900", "-strict=true"})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level, "yaml over default")
	assert.Equal(t, uint64(7), cfg.Pipeline.Seed)
	assert.Equal(t, uint64(7), cfg.Fallback.Seed, "fallback seed follows pipeline seed")
	assert.Equal(t, "midpoint", cfg.Fallback.Mode)
	assert.Equal(t, 200, cfg.Pipeline.SampleLimit, ".env over yaml")
	assert.Equal(t, "From env", cfg.Report.Title, "env over .env")
	assert.Equal(t, 900, cfg.Report.ChartWidth, "flag over yaml")
	assert.Equal(t, 600, cfg.Report.ChartHeight)
	assert.True(t, cfg.Pipeline.Strict)
	assert.Equal(t, map[string]string{"orders": "olist_orders.csv"}, cfg.Paths.Files)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing yaml", func(t *testing.T) {
		_, err := Load(loadArgs(t, "-config", "/nonexistent/liveplan.yaml"))
		assert.ErrorContains(t, err, "read config file")
	})

	t.Run("bad integer", func(t *testing.T) {
		_, err := Load(loadArgs(t, "-sample-limit", "lots"))
		assert.ErrorContains(t, err, "invalid sample_limit")
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := Load(loadArgs(t, "-fallback-mode", "zero"))
		assert.ErrorContains(t, err, "config validation failed")
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := Load(loadArgs(t, "-nope"))
		assert.Error(t, err)
	})
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/liveplan/out", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "liveplan", "out"), got)

	got, err = expandPath("/absolute/path", "")
	require.NoError(t, err)
	assert.Equal(t, "/absolute/path", got)

	got, err = expandPath("relative/path", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Contains(t, got, "relative/path")

	got, err = expandPath("", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	// Test flag value takes priority.
	result := getConfigValue("flag-value", "TEST_KEY", "default-value")
	assert.Equal(t, "flag-value", result)

	// Test env var when flag is empty.
	t.Setenv("LIVEPLAN_TEST_KEY", "env-value")
	result = getConfigValue("", "TEST_KEY", "default-value")
	assert.Equal(t, "env-value", result)

	// Test default when both are empty.
	result = getConfigValue("", "NONEXISTENT_KEY", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestGetBoolConfigValue(t *testing.T) {
	tests := []struct {
		in   string
		def  bool
		want bool
	}{
		{"true", false, true},
		{"YES", false, true},
		{"1", false, true},
		{"false", true, false},
		{"nope", true, false},
		{"", true, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, getBoolConfigValue(tt.in, "UNSET_BOOL", tt.def), tt.in)
	}
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	// Create temp .env file.
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Test env file
LIVEPLAN_ENV=staging
LIVEPLAN_LOG_LEVEL=debug
# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	// Register cleanup for every key the file sets.
	for _, key := range []string{"LIVEPLAN_ENV", "LIVEPLAN_LOG_LEVEL", "QUOTED_VALUE", "SINGLE_QUOTED"} {
		t.Setenv(key, "")
		os.Unsetenv(key) //nolint:errcheck // Test setup
	}

	err = loadEnvFile(envFile)
	require.NoError(t, err)

	assert.Equal(t, "staging", os.Getenv("LIVEPLAN_ENV"))
	assert.Equal(t, "debug", os.Getenv("LIVEPLAN_LOG_LEVEL"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
ANOTHER_VALID=value
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)
	t.Setenv("VALID_KEY", "preset")

	err = loadEnvFile(envFile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	err := loadEnvFile("/nonexistent/file/.env")
	assert.Error(t, err)
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TEST_VAR", "original-value")

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`TEST_VAR=new-value`), 0o644))

	require.NoError(t, loadEnvFile(envFile))

	// Original value should be preserved.
	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}

func TestLoadEnvFile_Whitespace(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`  KEY_WITH_SPACES  =  value with spaces  `), 0o644))

	t.Setenv("KEY_WITH_SPACES", "")
	os.Unsetenv("KEY_WITH_SPACES") //nolint:errcheck // Test setup

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "value with spaces", os.Getenv("KEY_WITH_SPACES"))
}
