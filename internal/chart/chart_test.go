package chart

import (
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"encoding/json/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/fallback"
	"github.com/listenupapp/liveplan/internal/outcome"
	"github.com/listenupapp/liveplan/internal/recommend"
	"github.com/listenupapp/liveplan/internal/sample"
	"github.com/listenupapp/liveplan/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleInput(t *testing.T) Input {
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
	return Input{Plan: plan, Analysis: res}
}

func TestRenderAll_Sample(t *testing.T) {
	dir := t.TempDir()
	r := New(Config{Width: 640, Height: 400}, testLogger())

	res, err := r.RenderAll(context.Background(), dir, sampleInput(t))
	require.NoError(t, err)
	require.Len(t, res.Charts, len(Names()))
	for _, n := range res.Notes {
		assert.Equal(t, outcome.StatusOK, n.Status, n.String())
	}

	for _, c := range res.Charts {
		f, err := os.Open(c.Path)
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err, c.Name)
		assert.Equal(t, image.Rect(0, 0, 640, 400), img.Bounds())
		assert.NotEmpty(t, c.BlurHash)
		assert.Positive(t, c.Bytes)
	}

	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Len(t, m.Charts, len(Names()))
}

func TestRenderAll_NoSessionsSkipsCharts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	r := New(Config{}, testLogger())

	res, err := r.RenderAll(context.Background(), dir, Input{Plan: &recommend.Plan{}})
	require.NoError(t, err)
	assert.Empty(t, res.Charts)
	require.Len(t, res.Notes, len(Names()))
	assert.Equal(t, outcome.StatusSkipped, res.Notes[0].Status)
	assert.NoDirExists(t, dir)
}

func TestRenderAll_FailingChartIsSkipped(t *testing.T) {
	dir := t.TempDir()
	r := New(Config{Width: 400, Height: 300}, testLogger())

	// A plan with sessions but no analysis: the time slot chart has nothing
	// to draw while the others fall back to the plan's values.
	plan, err := recommend.New(mustFallback(t), testLogger()).Build(context.Background(), &analysis.Result{}, 3)
	require.NoError(t, err)

	res, err := r.RenderAll(context.Background(), dir, Input{Plan: plan})
	require.NoError(t, err)
	assert.Len(t, res.Charts, len(Names())-1)

	var failed []string
	for _, n := range res.Notes {
		if n.Status == outcome.StatusFailed {
			failed = append(failed, n.Subject)
			assert.Equal(t, outcome.ReasonRenderFailed, n.Reason)
		}
	}
	assert.Equal(t, []string{TimeSlots}, failed)
	assert.NoFileExists(t, filepath.Join(dir, TimeSlots))
}

func TestRenderAll_BlockedDirectoryIsNoted(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "charts")
	require.NoError(t, os.WriteFile(dir, []byte("not a directory"), 0o644))

	res, err := New(Config{Width: 400, Height: 300}, testLogger()).RenderAll(context.Background(), dir, sampleInput(t))
	require.NoError(t, err)
	assert.Empty(t, res.Charts)
	require.Len(t, res.Notes, len(Names())+1)
	for _, n := range res.Notes {
		assert.Equal(t, outcome.StatusFailed, n.Status, n.Subject)
		assert.Equal(t, outcome.ReasonRenderFailed, n.Reason)
	}
}

func TestRenderAll_BlockedManifestIsNoted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ManifestName, "x"), 0o755))

	res, err := New(Config{Width: 400, Height: 300}, testLogger()).RenderAll(context.Background(), dir, sampleInput(t))
	require.NoError(t, err)
	assert.Len(t, res.Charts, len(Names()))

	last := res.Notes[len(res.Notes)-1]
	assert.Equal(t, ManifestName, last.Subject)
	assert.Equal(t, outcome.StatusFailed, last.Status)
}

func mustFallback(t *testing.T) fallback.Provider {
	t.Helper()
	fb, err := fallback.New(fallback.Config{Mode: fallback.ModeMidpoint}, testLogger())
	require.NoError(t, err)
	return fb
}

func TestWrap(t *testing.T) {
	lines := Wrap("Premium time slots with high visibility", 15)
	assert.Equal(t, []string{"Premium time", "slots with high", "visibility"}, lines)
	assert.Empty(t, Wrap("   ", 10))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Beauty", Truncate("Beauty", 10))
	assert.Equal(t, "Electro..", Truncate("Electronics", 9))
	assert.Equal(t, "El", Truncate("Electronics", 2))
}

func TestPalette(t *testing.T) {
	p := Palette(3)
	require.Len(t, p, 3)
	assert.NotEqual(t, p[0], p[1])
	assert.Equal(t, KeyColor("Beauty"), KeyColor("Beauty"))
	assert.Equal(t, uint8(0xFF), Ramp(2).A)
}

func TestBlurHash_SmallImage(t *testing.T) {
	hash, err := BlurHash(image.NewRGBA(image.Rect(0, 0, 32, 16)))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}
