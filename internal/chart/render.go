// Package chart plots the strategy charts with gonum/plot and writes them as
// PNG images.
package chart

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"encoding/json/jsontext"
	"encoding/json/v2"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/outcome"
	"github.com/listenupapp/liveplan/internal/recommend"
)

const stage = "chart"

// Default image size in pixels.
const (
	DefaultWidth  = 1000
	DefaultHeight = 600
)

// ManifestName is the manifest's file name in the chart directory.
const ManifestName = "manifest.json"

// Config sets the image size.
type Config struct {
	Width  int `yaml:"width" validate:"omitempty,min=320,max=4000"`
	Height int `yaml:"height" validate:"omitempty,min=240,max=4000"`
}

// Input is what the charts show.
type Input struct {
	Plan     *recommend.Plan
	Analysis *analysis.Result
}

// Chart describes one written image.
type Chart struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Bytes    int64  `json:"bytes"`
	BlurHash string `json:"blurhash,omitempty"`
}

// Manifest lists the charts of a run.
type Manifest struct {
	CreatedAt time.Time `json:"created_at"`
	Charts    []Chart   `json:"charts"`
}

// Result is the outcome of RenderAll.
type Result struct {
	Charts []Chart
	Notes  []outcome.Note
}

// Renderer writes chart images.
type Renderer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a renderer. Zero sizes take the defaults.
func New(cfg Config, logger *slog.Logger) *Renderer {
	if cfg.Width == 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height == 0 {
		cfg.Height = DefaultHeight
	}
	return &Renderer{cfg: cfg, logger: logger}
}

// RenderAll draws every chart into dir and writes the manifest. A chart or
// manifest that fails is logged, noted as failed and skipped; only
// cancellation is returned as an error.
func (r *Renderer) RenderAll(ctx context.Context, dir string, in Input) (*Result, error) {
	res := &Result{}
	if in.Plan == nil || !in.Plan.HasData() {
		for _, name := range Names() {
			res.Notes = append(res.Notes, outcome.Note{
				Stage: stage, Subject: name, Status: outcome.StatusSkipped, Reason: outcome.ReasonEmptyResult,
			})
		}
		r.logger.Info("charts skipped", "reason", "no sessions")
		return res, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		err = fmt.Errorf("create chart directory: %w", err)
		r.logger.Warn("charts skipped", "dir", dir, "error", err)
		for _, name := range append(Names(), ManifestName) {
			res.Notes = append(res.Notes, failedNote(name, err))
		}
		return res, nil
	}

	for _, def := range definitions() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chart, err := r.render(dir, def, in)
		if err != nil {
			r.logger.Warn("chart skipped", "chart", def.name, "error", err)
			res.Notes = append(res.Notes, failedNote(def.name, err))
			continue
		}
		res.Charts = append(res.Charts, chart)
		res.Notes = append(res.Notes, outcome.Note{Stage: stage, Subject: def.name, Status: outcome.StatusOK})
	}

	if err := writeManifest(filepath.Join(dir, ManifestName), &Manifest{CreatedAt: time.Now().UTC(), Charts: res.Charts}); err != nil {
		r.logger.Warn("chart manifest skipped", "error", err)
		res.Notes = append(res.Notes, failedNote(ManifestName, err))
	}
	r.logger.Info("charts written", "dir", dir, "charts", len(res.Charts))
	return res, nil
}

func failedNote(subject string, err error) outcome.Note {
	return outcome.Note{
		Stage: stage, Subject: subject, Status: outcome.StatusFailed,
		Reason: outcome.ReasonRenderFailed, Detail: err.Error(),
	}
}

func (r *Renderer) render(dir string, def definition, in Input) (Chart, error) {
	sz := size{W: vg.Points(float64(r.cfg.Width)), H: vg.Points(float64(r.cfg.Height))}
	p, err := def.draw(in, sz)
	if err != nil {
		return Chart{}, err
	}

	// At 72 DPI one point is one pixel.
	canvas := vgimg.NewWith(vgimg.UseWH(sz.W, sz.H), vgimg.UseDPI(72))
	p.Draw(draw.New(canvas))
	img := canvas.Image()

	path := filepath.Join(dir, def.name)
	n, err := writePNG(path, img)
	if err != nil {
		return Chart{}, err
	}

	b := img.Bounds()
	chart := Chart{Name: def.name, Path: path, Width: b.Dx(), Height: b.Dy(), Bytes: n}
	// A missing placeholder does not invalidate the chart.
	if hash, err := BlurHash(img); err != nil {
		r.logger.Warn("blurhash failed", "chart", def.name, "error", err)
	} else {
		chart.BlurHash = hash
	}
	return chart, nil
}

// writePNG encodes img to a temp file and renames it into place.
func writePNG(path string, img image.Image) (int64, error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp)
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return 0, fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return info.Size(), nil
}

func writeManifest(path string, m *Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart manifest: %w", err)
	}
	defer f.Close()
	if err := json.MarshalWrite(f, m, jsontext.WithIndent("  ")); err != nil {
		return fmt.Errorf("write chart manifest: %w", err)
	}
	return f.Close()
}
