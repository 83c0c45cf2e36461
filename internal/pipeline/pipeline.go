// Package pipeline runs the planner end to end: load the sources, synthesize
// sessions, aggregate, recommend, then write workbooks, charts, the strategy
// document and the bundle.
package pipeline

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/chart"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/export"
	"github.com/listenupapp/liveplan/internal/fallback"
	"github.com/listenupapp/liveplan/internal/id"
	"github.com/listenupapp/liveplan/internal/loader"
	"github.com/listenupapp/liveplan/internal/logger"
	"github.com/listenupapp/liveplan/internal/outcome"
	"github.com/listenupapp/liveplan/internal/recommend"
	"github.com/listenupapp/liveplan/internal/report"
	"github.com/listenupapp/liveplan/internal/session"
	"github.com/listenupapp/liveplan/internal/store/sqlite"
)

// ChartsDir is the chart directory under the output directory.
const ChartsDir = "visualizations"

// Stages of the notes the pipeline records itself.
const (
	fallbackStage = "fallback"
	reportStage   = "report"
	bundleStage   = "bundle"
)

// RunStore records run history. The SQLite store implements it.
type RunStore interface {
	CreateRun(ctx context.Context, r *sqlite.Run) error
	FinishRun(ctx context.Context, r *sqlite.Run) error
	SaveTables(ctx context.Context, runID string, res *analysis.Result) (int, error)
	SaveOutcomes(ctx context.Context, runID string, notes []outcome.Note, uses []fallback.Use) error
}

// Config configures a Pipeline.
type Config struct {
	OutputDir string
	Loader    loader.Config
	Sessions  session.Config
	Report    report.Config
	Charts    chart.Config
	// FallbackMode is recorded with the run.
	FallbackMode string
	// Strict fails the run at the first degraded stage.
	Strict       bool
	RenderCharts bool
	Bundle       bool
}

// Options are per-run settings.
type Options struct {
	OnProgress func(*Progress)
}

// Summary describes a finished run.
type Summary struct {
	RunID     string
	Status    outcome.Status
	StartedAt time.Time
	Duration  time.Duration
	// Sample is true when the commerce tables were synthetic.
	Sample     bool
	Sessions   int
	Notes      []outcome.Note
	Fallbacks  []fallback.Use
	Analysis   *analysis.Result
	Plan       *recommend.Plan
	Files      []export.File
	Charts     []chart.Chart
	ReportPath string
	Bundle     *export.BundleResult
}

// Degradations returns the Degraded and Failed notes.
func (s *Summary) Degradations() []outcome.Note {
	var out []outcome.Note
	for _, n := range s.Notes {
		if n.Status.Degradation() {
			out = append(out, n)
		}
	}
	return out
}

// Pipeline wires the stages of one run.
type Pipeline struct {
	cfg    Config
	fb     fallback.Provider
	store  RunStore
	logger *logger.Logger

	loader   *loader.Loader
	synth    *session.Synthesizer
	analyzer *analysis.Analyzer
	builder  *recommend.Builder
	report   *report.Renderer
	charts   *chart.Renderer
	export   *export.Writer
}

// New creates a pipeline. store may be nil to skip run history.
func New(cfg Config, fb fallback.Provider, store RunStore, log *logger.Logger) *Pipeline {
	stageLog := func(name string) *logger.Logger { return log.WithStage(name) }
	return &Pipeline{
		cfg:      cfg,
		fb:       fb,
		store:    store,
		logger:   log,
		loader:   loader.New(cfg.Loader, stageLog("load").Logger),
		synth:    session.New(cfg.Sessions, fb, stageLog("sessions").Logger),
		analyzer: analysis.New(aggregate.NewEngine(fb, stageLog("aggregate").Logger), fb, stageLog("aggregate").Logger),
		builder:  recommend.New(fb, stageLog("recommend").Logger),
		report:   report.New(cfg.Report, stageLog("report").Logger),
		charts:   chart.New(cfg.Charts, stageLog("chart").Logger),
		export:   export.NewWriter(stageLog("export").Logger),
	}
}

// run is the state of one invocation.
type run struct {
	summary *Summary
	log     *outcome.Log
	tracker *ProgressTracker
	record  *sqlite.Run
}

// Run loads the configured sources and runs every stage.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Summary, error) {
	r, err := p.start(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := p.enter(ctx, r, PhaseLoading); err != nil {
		return p.fail(ctx, r, err)
	}
	loaded, err := p.loader.Load(ctx)
	if err != nil {
		return p.fail(ctx, r, err)
	}
	return p.process(ctx, r, loaded)
}

// RunDataset runs every stage after loading on a prepared dataset.
func (p *Pipeline) RunDataset(ctx context.Context, ds *domain.Dataset, opts Options) (*Summary, error) {
	r, err := p.start(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := p.enter(ctx, r, PhaseLoading); err != nil {
		return p.fail(ctx, r, err)
	}
	return p.process(ctx, r, &loader.Result{Dataset: ds})
}

func (p *Pipeline) start(ctx context.Context, opts Options) (*run, error) {
	runID, err := id.RunID()
	if err != nil {
		return nil, err
	}
	started := time.Now().UTC()
	r := &run{
		summary: &Summary{RunID: runID, StartedAt: started},
		log:     outcome.NewLog(),
		tracker: NewProgressTracker(runID, opts.OnProgress),
		record: &sqlite.Run{
			ID:           runID,
			StartedAt:    started,
			Status:       sqlite.RunRunning,
			Seed:         p.cfg.Loader.Seed,
			FallbackMode: p.cfg.FallbackMode,
			Sample:       p.cfg.Loader.UseSample,
		},
	}
	if p.store != nil {
		if err := p.store.CreateRun(ctx, r.record); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
	}
	p.logger.Info("run started", "run_id", runID, "output", p.cfg.OutputDir, "strict", p.cfg.Strict)
	return r, nil
}

//nolint:gocyclo // One branch per stage.
func (p *Pipeline) process(ctx context.Context, r *run, loaded *loader.Result) (*Summary, error) {
	sum := r.summary
	sum.Sample = loaded.Sample
	r.record.Sample = loaded.Sample
	if err := p.note(r, PhaseLoading, loaded.Notes...); err != nil {
		return p.fail(ctx, r, err)
	}

	if err := p.enter(ctx, r, PhaseSessions); err != nil {
		return p.fail(ctx, r, err)
	}
	synth, err := p.synth.Run(ctx, loaded.Dataset)
	if err != nil {
		return p.fail(ctx, r, err)
	}
	sum.Sessions = len(synth.Sessions)
	if err := p.note(r, PhaseSessions, synth.Notes...); err != nil {
		return p.fail(ctx, r, err)
	}

	if err := p.enter(ctx, r, PhaseAggregating); err != nil {
		return p.fail(ctx, r, err)
	}
	res, err := p.analyzer.Run(ctx, analysis.Input{
		Dataset:    loaded.Dataset,
		Sessions:   synth.Sessions,
		Engagement: synth.Engagement,
	})
	if err != nil {
		return p.fail(ctx, r, err)
	}
	sum.Analysis = res
	if err := p.note(r, PhaseAggregating, res.Notes...); err != nil {
		return p.fail(ctx, r, err)
	}

	if err := p.enter(ctx, r, PhaseRecommending); err != nil {
		return p.fail(ctx, r, err)
	}
	plan, err := p.builder.Build(ctx, res, sum.Sessions)
	if err != nil {
		return p.fail(ctx, r, err)
	}
	sum.Plan = plan
	if err := p.note(r, PhaseRecommending, plan.Notes()...); err != nil {
		return p.fail(ctx, r, err)
	}

	if err := p.enter(ctx, r, PhaseExporting); err != nil {
		return p.fail(ctx, r, err)
	}
	written, err := p.export.WriteAnalysis(ctx, p.cfg.OutputDir, res)
	if err != nil {
		return p.fail(ctx, r, err)
	}
	sum.Files = written.Files
	if err := p.note(r, PhaseExporting, written.Notes...); err != nil {
		return p.fail(ctx, r, err)
	}
	if p.store != nil {
		if _, err := p.store.SaveTables(ctx, sum.RunID, res); err != nil {
			return p.fail(ctx, r, fmt.Errorf("store tables: %w", err))
		}
	}

	if err := p.enter(ctx, r, PhaseCharting); err != nil {
		return p.fail(ctx, r, err)
	}
	var chartPaths []string
	if p.cfg.RenderCharts {
		charts, err := p.charts.RenderAll(ctx, filepath.Join(p.cfg.OutputDir, ChartsDir), chart.Input{Plan: plan, Analysis: res})
		if err != nil {
			return p.fail(ctx, r, err)
		}
		sum.Charts = charts.Charts
		for _, c := range charts.Charts {
			chartPaths = append(chartPaths, path.Join(ChartsDir, filepath.Base(c.Path)))
		}
		if err := p.note(r, PhaseCharting, charts.Notes...); err != nil {
			return p.fail(ctx, r, err)
		}
	}

	sum.Fallbacks = p.fb.Uses()
	if err := p.note(r, PhaseCharting, fallbackNotes(sum.Fallbacks)...); err != nil {
		return p.fail(ctx, r, err)
	}

	if err := p.enter(ctx, r, PhaseReporting); err != nil {
		return p.fail(ctx, r, err)
	}
	sum.ReportPath = filepath.Join(p.cfg.OutputDir, report.FileName)
	body, err := p.report.WriteFile(ctx, sum.ReportPath, report.Input{
		RunID:       sum.RunID,
		GeneratedAt: sum.StartedAt,
		Plan:        plan,
		Notes:       r.log.Notes(),
		Fallbacks:   sum.Fallbacks,
		Charts:      chartPaths,
	})
	if err != nil {
		sum.ReportPath = ""
		if err := p.skipOutput(ctx, r, PhaseReporting, reportStage, report.FileName, err); err != nil {
			return p.fail(ctx, r, err)
		}
	}
	r.record.ReportPath = sum.ReportPath

	if err := p.enter(ctx, r, PhaseBundling); err != nil {
		return p.fail(ctx, r, err)
	}
	if p.cfg.Bundle {
		sum.Bundle, err = p.export.Bundle(ctx, export.BundleOptions{
			RunID:      sum.RunID,
			OutputPath: export.BundlePath(p.cfg.OutputDir, sum.RunID),
			Plan:       plan,
			Analysis:   res,
			Notes:      r.log.Notes(),
			Report:     body,
		})
		if err != nil {
			sum.Bundle = nil
			if err := p.skipOutput(ctx, r, PhaseBundling, bundleStage, export.BundleDir, err); err != nil {
				return p.fail(ctx, r, err)
			}
		} else {
			r.record.BundlePath = sum.Bundle.Path
			r.record.BundleSHA256 = sum.Bundle.Checksum
		}
	}

	r.tracker.SetPhase(PhaseComplete)
	return p.finish(ctx, r)
}

// enter starts phase unless ctx is done.
func (p *Pipeline) enter(ctx context.Context, r *run, phase Phase) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.tracker.SetPhase(phase)
	p.logger.Debug("phase started", "run_id", r.summary.RunID, "phase", phase)
	return nil
}

// note records stage outcomes. In strict mode any degradation ends the run.
func (p *Pipeline) note(r *run, phase Phase, notes ...outcome.Note) error {
	r.log.AddAll(notes...)
	degraded := 0
	for _, n := range notes {
		if n.Status.Degradation() {
			degraded++
		}
	}
	r.tracker.AddDegradations(degraded)

	if p.cfg.Strict && degraded > 0 {
		return fmt.Errorf("strict mode: %s degraded: %w", phase, r.log.Err())
	}
	return nil
}

// skipOutput records an output that could not be written and lets the run go
// on. Cancellation and strict mode still end the run.
func (p *Pipeline) skipOutput(ctx context.Context, r *run, phase Phase, stage, subject string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	p.logger.WithError(err).Warn("output skipped", "run_id", r.summary.RunID, "output", subject)
	return p.note(r, phase, outcome.Note{
		Stage: stage, Subject: subject, Status: outcome.StatusFailed,
		Reason: outcome.ReasonRenderFailed, Detail: err.Error(),
	})
}

func (p *Pipeline) finish(ctx context.Context, r *run) (*Summary, error) {
	sum := r.summary
	sum.Status = r.log.Status()
	sum.Notes = r.log.Notes()
	sum.Duration = time.Since(sum.StartedAt)

	if p.store != nil {
		if err := p.store.SaveOutcomes(ctx, sum.RunID, sum.Notes, sum.Fallbacks); err != nil {
			return sum, fmt.Errorf("store outcomes: %w", err)
		}
		r.record.Status = sqlite.RunCompleted
		if sum.Status.Degradation() {
			r.record.Status = sqlite.RunDegraded
		}
		r.record.Sessions = sum.Sessions
		r.record.Degradations = len(sum.Degradations())
		if err := p.store.FinishRun(ctx, r.record); err != nil {
			return sum, fmt.Errorf("record run: %w", err)
		}
	}

	p.logger.Info("run complete",
		"run_id", sum.RunID,
		"status", sum.Status,
		"sessions", sum.Sessions,
		"degradations", len(sum.Degradations()),
		"fallbacks", len(sum.Fallbacks),
		"duration", sum.Duration,
	)
	return sum, nil
}

// fail ends a run with err. The partial summary is returned with it.
func (p *Pipeline) fail(ctx context.Context, r *run, err error) (*Summary, error) {
	sum := r.summary
	sum.Status = outcome.StatusFailed
	sum.Notes = r.log.Notes()
	sum.Duration = time.Since(sum.StartedAt)

	log := p.logger.WithField("run_id", sum.RunID)
	log.WithError(err).Error("run failed", "phase", r.tracker.Get().Phase)

	if p.store != nil {
		r.record.Status = sqlite.RunFailed
		r.record.Sessions = sum.Sessions
		r.record.Degradations = len(sum.Degradations())
		r.record.Error = err.Error()
		// The run's own context may be the reason for failing.
		storeCtx := context.WithoutCancel(ctx)
		if serr := p.store.SaveOutcomes(storeCtx, sum.RunID, sum.Notes, p.fb.Uses()); serr != nil {
			log.WithError(serr).Warn("failed to store outcomes")
		}
		if serr := p.store.FinishRun(storeCtx, r.record); serr != nil {
			log.WithError(serr).Warn("failed to record run")
		}
	}
	return sum, err
}

// fallbackNotes reports every substituted quantity as a degradation.
func fallbackNotes(uses []fallback.Use) []outcome.Note {
	notes := make([]outcome.Note, 0, len(uses))
	for _, u := range uses {
		notes = append(notes, outcome.Note{
			Stage:   fallbackStage,
			Subject: string(u.Quantity),
			Status:  outcome.StatusDegraded,
			Reason:  outcome.ReasonFallbackUsed,
			Detail:  fmt.Sprintf("%d values substituted, first for %s", u.Count, u.First),
		})
	}
	return notes
}
