package export

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/fallback"
	"github.com/listenupapp/liveplan/internal/outcome"
	"github.com/listenupapp/liveplan/internal/recommend"
	"github.com/listenupapp/liveplan/internal/sample"
	"github.com/listenupapp/liveplan/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type run struct {
	analysis *analysis.Result
	plan     *recommend.Plan
}

func sampleRun(t *testing.T) run {
	t.Helper()
	ctx := context.Background()
	logger := testLogger()
	fb, err := fallback.New(fallback.Config{Mode: fallback.ModeMidpoint}, logger)
	require.NoError(t, err)

	ds := sample.New(sample.DefaultSeed).Dataset()
	synth, err := session.New(session.Config{SampleLimit: session.DefaultSampleLimit}, fb, logger).Run(ctx, ds)
	require.NoError(t, err)
	res, err := analysis.New(aggregate.NewEngine(fb, logger), fb, logger).Run(ctx, analysis.Input{
		Dataset: ds, Sessions: synth.Sessions, Engagement: synth.Engagement,
	})
	require.NoError(t, err)
	plan, err := recommend.New(fb, logger).Build(ctx, res, len(synth.Sessions))
	require.NoError(t, err)
	return run{analysis: res, plan: plan}
}

func smallTable() *aggregate.Table {
	return &aggregate.Table{
		Name:       "top_creators",
		Dimensions: []aggregate.Dimension{aggregate.DimTier, aggregate.DimCreator},
		Columns: []aggregate.Column{
			{Name: "revenue", Metric: "revenue", Kind: aggregate.KindSum},
			{Name: aggregate.ColumnCount, Kind: aggregate.KindCount},
		},
		Rows: []aggregate.Row{
			{Keys: []string{"Top", "Ann"}, Values: []float64{120.5, 3}, Count: 3},
			{Keys: []string{"Mid", "Bob, Jr."}, Values: []float64{80, 2}, Count: 2},
		},
	}
}

func TestWriteWorkbook_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creator_performance.xlsx")
	wb := &analysis.Workbook{Name: "creator_performance", Sheets: []*aggregate.Table{smallTable()}}

	require.NoError(t, WriteWorkbook(path, wb))
	assert.NoFileExists(t, path+".tmp")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"top_creators"}, f.GetSheetList())
	rows, err := f.GetRows("top_creators")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, smallTable().Header(), rows[0])
	assert.Equal(t, "Ann", rows[1][1])
	assert.Equal(t, "120.5", rows[1][2])
	assert.Equal(t, "3", rows[1][3])
}

func TestWriteWorkbook_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, WriteWorkbook(path, &analysis.Workbook{Name: "empty"}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, domain.NoDataAvailable, v)
}

func TestSheetName(t *testing.T) {
	used := make(map[string]bool)
	long := strings.Repeat("x", 40)

	tests := []struct {
		in   string
		want string
	}{
		{"top_creators", "top_creators"},
		{"a/b:c", "a_b_c"},
		{long, strings.Repeat("x", 31)},
		{long, strings.Repeat("x", 29) + "~2"},
		{long, strings.Repeat("x", 29) + "~3"},
	}
	for _, tt := range tests {
		got := sheetName(tt.in, used)
		assert.Equal(t, tt.want, got)
		assert.LessOrEqual(t, len(got), maxSheetName)
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "top_creators.csv")
	require.NoError(t, WriteCSV(path, smallTable()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Bob, Jr.", records[2][1])
}

func TestWriteAnalysis_Sample(t *testing.T) {
	r := sampleRun(t)
	dir := t.TempDir()

	out, err := NewWriter(testLogger()).WriteAnalysis(context.Background(), dir, r.analysis)
	require.NoError(t, err)
	require.NotEmpty(t, out.Files)
	require.Len(t, out.Notes, len(r.analysis.Workbooks))
	for _, n := range out.Notes {
		assert.Equal(t, outcome.StatusOK, n.Status, n.Subject)
	}

	for _, wb := range r.analysis.Workbooks {
		assert.FileExists(t, filepath.Join(dir, AnalysisDir, wb.Name+".xlsx"))
		for _, s := range wb.Sheets {
			assert.FileExists(t, filepath.Join(dir, AnalysisDir, wb.Name, s.Name+".csv"))
		}
	}

	f, err := excelize.OpenFile(filepath.Join(dir, AnalysisDir, analysis.WorkbookCreators+".xlsx"))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), analysis.SheetTopCreators)
}

func TestWriteAnalysis_BlockedFilesAreSkipped(t *testing.T) {
	r := sampleRun(t)
	dir := t.TempDir()
	// Directories squatting on output paths make those writes fail.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, AnalysisDir, analysis.WorkbookCreators+".xlsx", "x"), 0o755))
	blockedCSV := filepath.Join(dir, AnalysisDir, analysis.WorkbookCategories, analysis.SheetCategoryTrend+".csv")
	require.NoError(t, os.MkdirAll(filepath.Join(blockedCSV, "x"), 0o755))

	out, err := NewWriter(testLogger()).WriteAnalysis(context.Background(), dir, r.analysis)
	require.NoError(t, err)

	failed := make(map[string]outcome.Note)
	for _, n := range out.Notes {
		if n.Status == outcome.StatusFailed {
			failed[n.Subject] = n
		}
	}
	require.Contains(t, failed, analysis.WorkbookCreators)
	assert.Equal(t, outcome.ReasonRenderFailed, failed[analysis.WorkbookCreators].Reason)
	assert.Contains(t, failed, analysis.WorkbookCategories+"/"+analysis.SheetCategoryTrend)

	for _, wb := range r.analysis.Workbooks {
		if wb.Name == analysis.WorkbookCreators {
			continue
		}
		assert.FileExists(t, filepath.Join(dir, AnalysisDir, wb.Name+".xlsx"))
	}
	// The blocked workbook's sheet mirrors are still written.
	assert.FileExists(t, filepath.Join(dir, AnalysisDir, analysis.WorkbookCreators, analysis.SheetTopCreators+".csv"))
}

func TestWriteAnalysis_Canceled(t *testing.T) {
	r := sampleRun(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWriter(testLogger()).WriteAnalysis(ctx, t.TempDir(), r.analysis)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBundle_Sample(t *testing.T) {
	r := sampleRun(t)
	path := BundlePath(t.TempDir(), "run-1")
	notes := append(r.plan.Notes(), outcome.Note{Stage: "chart", Subject: "x.png", Status: outcome.StatusFailed, Reason: outcome.ReasonRenderFailed})

	res, err := NewWriter(testLogger()).Bundle(context.Background(), BundleOptions{
		RunID:      "run-1",
		OutputPath: path,
		Plan:       r.plan,
		Analysis:   r.analysis,
		Notes:      notes,
		Report:     "# Livestream Programming Strategy\n",
	})
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)
	assert.NoFileExists(t, path+".tmp")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), res.Checksum)
	assert.Equal(t, int64(len(data)), res.Size)

	m, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, m.Version)
	assert.Equal(t, "run-1", m.RunID)
	assert.True(t, m.IncludesReport)
	assert.Equal(t, res.Counts, m.Counts)
	assert.Equal(t, len(notes), m.Counts.Outcomes)
	assert.Equal(t, len(Recommendations(r.plan)), m.Counts.Recommendations)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	rc, err := OpenEntry(zr, EntryOutcomes)
	require.NoError(t, err)
	var got []outcome.Note
	for n, err := range Lines[outcome.Note](rc) {
		require.NoError(t, err)
		got = append(got, n)
	}
	assert.Equal(t, notes, got)

	rc, err = OpenEntry(zr, EntryTables)
	require.NoError(t, err)
	tables := 0
	for rec, err := range Lines[TableRecord](rc) {
		require.NoError(t, err)
		assert.NotEmpty(t, rec.Header)
		tables++
	}
	assert.Equal(t, m.Counts.Tables, tables)

	rc, err = OpenEntry(zr, EntryReport)
	require.NoError(t, err)
	report, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "# Livestream Programming Strategy\n", string(report))
}

func TestBundle_EmptyRun(t *testing.T) {
	path := BundlePath(t.TempDir(), "empty")
	res, err := NewWriter(testLogger()).Bundle(context.Background(), BundleOptions{RunID: "empty", OutputPath: path})
	require.NoError(t, err)
	assert.Equal(t, BundleCounts{}, res.Counts)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	_, err = OpenEntry(zr, EntryReport)
	assert.ErrorIs(t, err, ErrEntryNotFound)

	m, err := ReadManifest(path)
	require.NoError(t, err)
	assert.False(t, m.IncludesReport)
}

func TestRecommendations(t *testing.T) {
	r := sampleRun(t)
	recs := Recommendations(r.plan)

	kinds := make(map[string]int)
	for _, rec := range recs {
		kinds[rec.Kind]++
	}
	assert.Equal(t, len(r.plan.Creators.Value), kinds[KindCreator])
	assert.Equal(t, 7, kinds[KindBestHour])
	assert.Equal(t, 7, kinds[KindCalendar])
	assert.Equal(t, 1, kinds[KindTimeSlots])
	assert.Equal(t, len(domain.Tiers()), kinds[KindTierStrategy])

	var cal calendarDay
	for _, rec := range recs {
		if rec.Kind == KindCalendar && rec.Rank == 1 {
			cal = rec.Value.(calendarDay)
		}
	}
	assert.Equal(t, "Monday", cal.Day)
	assert.Len(t, cal.Slots, 4)

	assert.Nil(t, Recommendations(nil))
}
