package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/chart"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/export"
	"github.com/listenupapp/liveplan/internal/fallback"
	"github.com/listenupapp/liveplan/internal/loader"
	"github.com/listenupapp/liveplan/internal/logger"
	"github.com/listenupapp/liveplan/internal/outcome"
	"github.com/listenupapp/liveplan/internal/report"
	"github.com/listenupapp/liveplan/internal/sample"
	"github.com/listenupapp/liveplan/internal/session"
	"github.com/listenupapp/liveplan/internal/store/sqlite"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		OutputDir:    t.TempDir(),
		Loader:       loader.Config{Seed: sample.DefaultSeed, UseSample: true},
		Sessions:     session.Config{SampleLimit: session.DefaultSampleLimit},
		Charts:       chart.Config{Width: 640, Height: 400},
		FallbackMode: string(fallback.ModeMidpoint),
		RenderCharts: true,
		Bundle:       true,
	}
}

func newTestPipeline(t *testing.T, cfg Config, store RunStore) *Pipeline {
	t.Helper()
	log := logger.Discard()
	fb, err := fallback.New(fallback.Config{Mode: fallback.ModeMidpoint}, log.Logger)
	require.NoError(t, err)
	return New(cfg, fb, store, log)
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "runs.db"), logger.Discard().Logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRun_Sample(t *testing.T) {
	cfg := testConfig(t)
	sum, err := newTestPipeline(t, cfg, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.True(t, sum.Sample)
	assert.Equal(t, session.DefaultSampleLimit, sum.Sessions)
	require.NotNil(t, sum.Plan)
	assert.True(t, sum.Plan.HasData())

	top := sum.Analysis.Sheet(analysis.WorkbookCreators, analysis.SheetTopCreators)
	require.NotNil(t, top)
	require.Positive(t, top.Len())
	assert.LessOrEqual(t, top.Len(), 15)
	prev := -1.0
	for i, row := range top.Rows {
		rpm, ok := top.Value(row, aggregate.ColumnRPM)
		require.True(t, ok)
		if i > 0 {
			assert.LessOrEqual(t, rpm, prev)
		}
		prev = rpm
	}

	for _, name := range analysis.Workbooks() {
		assert.FileExists(t, filepath.Join(cfg.OutputDir, export.AnalysisDir, name+".xlsx"))
	}
	assert.FileExists(t, filepath.Join(cfg.OutputDir, report.FileName))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, ChartsDir, chart.ManifestName))
	assert.NotEmpty(t, sum.Charts)

	require.NotNil(t, sum.Bundle)
	assert.FileExists(t, sum.Bundle.Path)
	assert.Equal(t, export.BundlePath(cfg.OutputDir, sum.RunID), sum.Bundle.Path)

	body, err := os.ReadFile(sum.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "## 1. Creator Programming Recommendations")
	assert.Contains(t, string(body), "visualizations/")
}

func TestRun_NoCharts(t *testing.T) {
	cfg := testConfig(t)
	cfg.RenderCharts = false
	cfg.Bundle = false

	sum, err := newTestPipeline(t, cfg, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Empty(t, sum.Charts)
	assert.Nil(t, sum.Bundle)
	assert.NoDirExists(t, filepath.Join(cfg.OutputDir, ChartsDir))
	assert.NoDirExists(t, filepath.Join(cfg.OutputDir, export.BundleDir))
}

func TestRunDataset_NoSessions(t *testing.T) {
	cfg := testConfig(t)
	sum, err := newTestPipeline(t, cfg, nil).RunDataset(context.Background(), &domain.Dataset{}, Options{})
	require.NoError(t, err)

	assert.Zero(t, sum.Sessions)
	assert.False(t, sum.Plan.HasData())
	assert.Empty(t, sum.Charts)

	body, err := os.ReadFile(filepath.Join(cfg.OutputDir, report.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(body), domain.NoDataAvailable)

	for _, name := range analysis.Workbooks() {
		assert.FileExists(t, filepath.Join(cfg.OutputDir, export.AnalysisDir, name+".xlsx"))
	}

	var skipped int
	for _, n := range sum.Notes {
		if n.Status == outcome.StatusSkipped {
			skipped++
		}
	}
	assert.Positive(t, skipped)
}

func TestRun_StrictFailsOnMissingSources(t *testing.T) {
	cfg := testConfig(t)
	cfg.Loader = loader.Config{DataDir: t.TempDir(), Seed: sample.DefaultSeed, Strict: true}
	cfg.Strict = true
	store := newTestStore(t)

	sum, err := newTestPipeline(t, cfg, store).Run(context.Background(), Options{})
	require.Error(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, outcome.StatusFailed, sum.Status)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, report.FileName))

	got, err := store.GetRun(context.Background(), sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, sqlite.RunFailed, got.Status)
	assert.NotEmpty(t, got.Error)
	assert.NotNil(t, got.FinishedAt)
}

func TestRun_LenientDegradesOnMissingSources(t *testing.T) {
	cfg := testConfig(t)
	cfg.Loader = loader.Config{DataDir: t.TempDir(), Seed: sample.DefaultSeed}

	sum, err := newTestPipeline(t, cfg, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.True(t, sum.Sample)
	assert.NotEmpty(t, sum.Degradations())
	assert.Positive(t, sum.Sessions)
}

func failedNotes(sum *Summary) map[string]outcome.Note {
	out := make(map[string]outcome.Note)
	for _, n := range sum.Notes {
		if n.Status == outcome.StatusFailed && n.Reason == outcome.ReasonRenderFailed {
			out[n.Stage+":"+n.Subject] = n
		}
	}
	return out
}

// block makes path unusable as a file by putting a non-empty directory there.
func block(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(path, "x"), 0o755))
}

func TestRun_BlockedOutputsAreSkipped(t *testing.T) {
	tests := []struct {
		name    string
		blocked func(dir string) string
		note    string
	}{
		{
			name: "workbook",
			blocked: func(dir string) string {
				return filepath.Join(dir, export.AnalysisDir, analysis.WorkbookCreators+".xlsx")
			},
			note: "export:" + analysis.WorkbookCreators,
		},
		{
			name: "sheet mirror",
			blocked: func(dir string) string {
				return filepath.Join(dir, export.AnalysisDir, analysis.WorkbookCreators, analysis.SheetTopCreators+".csv")
			},
			note: "export:" + analysis.WorkbookCreators + "/" + analysis.SheetTopCreators,
		},
		{
			name:    "report",
			blocked: func(dir string) string { return filepath.Join(dir, report.FileName) },
			note:    "report:" + report.FileName,
		},
		{
			name:    "chart manifest",
			blocked: func(dir string) string { return filepath.Join(dir, ChartsDir, chart.ManifestName) },
			note:    "chart:" + chart.ManifestName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			block(t, tt.blocked(cfg.OutputDir))
			store := newTestStore(t)

			sum, err := newTestPipeline(t, cfg, store).Run(context.Background(), Options{})
			require.NoError(t, err)

			assert.Contains(t, failedNotes(sum), tt.note)
			assert.Equal(t, outcome.StatusFailed, sum.Status)

			// Everything else is still written.
			for _, name := range analysis.Workbooks() {
				path := filepath.Join(cfg.OutputDir, export.AnalysisDir, name+".xlsx")
				if path != tt.blocked(cfg.OutputDir) {
					assert.FileExists(t, path)
				}
			}
			require.NotNil(t, sum.Bundle)
			assert.FileExists(t, sum.Bundle.Path)
			assert.NotEmpty(t, sum.Charts)
			if tt.name != "report" {
				assert.FileExists(t, filepath.Join(cfg.OutputDir, report.FileName))
			} else {
				assert.Empty(t, sum.ReportPath)
			}

			got, err := store.GetRun(context.Background(), sum.RunID)
			require.NoError(t, err)
			assert.Equal(t, sqlite.RunDegraded, got.Status)
		})
	}
}

func TestRun_BlockedChartDirectory(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.OutputDir, ChartsDir), []byte("file"), 0o644))

	sum, err := newTestPipeline(t, cfg, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Empty(t, sum.Charts)
	assert.Contains(t, failedNotes(sum), "chart:"+chart.TopCreators)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, report.FileName))
	require.NotNil(t, sum.Bundle)
}

func TestRun_BlockedBundle(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.OutputDir, export.BundleDir), []byte("file"), 0o644))

	sum, err := newTestPipeline(t, cfg, nil).Run(context.Background(), Options{})
	require.NoError(t, err)

	assert.Nil(t, sum.Bundle)
	assert.Contains(t, failedNotes(sum), "bundle:"+export.BundleDir)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, report.FileName))
}

func TestRun_StrictFailsOnBlockedOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Strict = true
	block(t, filepath.Join(cfg.OutputDir, export.AnalysisDir, analysis.WorkbookCreators+".xlsx"))

	sum, err := newTestPipeline(t, cfg, nil).Run(context.Background(), Options{})
	require.Error(t, err)
	assert.Equal(t, outcome.StatusFailed, sum.Status)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, report.FileName))
}

func TestRun_Progress(t *testing.T) {
	var phases []Phase
	var last Progress
	onProgress := func(p *Progress) {
		if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
			phases = append(phases, p.Phase)
		}
		last = *p
	}

	sum, err := newTestPipeline(t, testConfig(t), nil).Run(context.Background(), Options{OnProgress: onProgress})
	require.NoError(t, err)

	assert.Equal(t, Phases(), phases)
	assert.Equal(t, sum.RunID, last.RunID)
	assert.Equal(t, PhaseComplete, last.Phase)
	assert.Equal(t, last.Steps, last.Step)
	assert.Equal(t, len(sum.Degradations()), last.Degradations)
}

func TestRun_RecordsHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sum, err := newTestPipeline(t, testConfig(t), store).Run(ctx, Options{})
	require.NoError(t, err)

	got, err := store.GetRun(ctx, sum.RunID)
	require.NoError(t, err)
	assert.Contains(t, []sqlite.RunStatus{sqlite.RunCompleted, sqlite.RunDegraded}, got.Status)
	assert.Equal(t, sum.Sessions, got.Sessions)
	assert.Equal(t, len(sum.Degradations()), got.Degradations)
	assert.Equal(t, sum.ReportPath, got.ReportPath)
	assert.Equal(t, sum.Bundle.Checksum, got.BundleSHA256)
	assert.Equal(t, "midpoint", got.FallbackMode)
	assert.True(t, got.Sample)

	sheets, err := store.ListSheets(ctx, sum.RunID)
	require.NoError(t, err)
	assert.NotEmpty(t, sheets)

	notes, err := store.ListOutcomes(ctx, sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, sum.Notes, notes)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := newTestPipeline(t, testConfig(t), nil).Run(ctx, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, sum)
	assert.Equal(t, outcome.StatusFailed, sum.Status)
}

func TestFallbackNotes(t *testing.T) {
	notes := fallbackNotes([]fallback.Use{
		{Quantity: fallback.RevenuePerMinute, Count: 2, First: "top_creators:Top/Ann"},
	})
	require.Len(t, notes, 1)
	assert.Equal(t, outcome.Note{
		Stage:   "fallback",
		Subject: "revenue_per_minute",
		Status:  outcome.StatusDegraded,
		Reason:  outcome.ReasonFallbackUsed,
		Detail:  "2 values substituted, first for top_creators:Top/Ann",
	}, notes[0])
}

func TestProgressTracker(t *testing.T) {
	var calls int
	tr := NewProgressTracker("run-1", func(*Progress) { calls++ })

	tr.SetPhase(PhaseLoading)
	tr.AddDegradations(0)
	tr.AddDegradations(2)

	got := tr.Get()
	assert.Equal(t, Progress{RunID: "run-1", Phase: PhaseLoading, Step: 1, Steps: len(Phases()), Degradations: 2}, got)
	assert.Equal(t, 2, calls)
}
