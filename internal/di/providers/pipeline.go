package providers

import (
	"fmt"

	"github.com/samber/do/v2"
	"golang.org/x/text/language"

	"github.com/listenupapp/liveplan/internal/chart"
	"github.com/listenupapp/liveplan/internal/config"
	"github.com/listenupapp/liveplan/internal/fallback"
	"github.com/listenupapp/liveplan/internal/loader"
	"github.com/listenupapp/liveplan/internal/logger"
	"github.com/listenupapp/liveplan/internal/pipeline"
	"github.com/listenupapp/liveplan/internal/report"
	"github.com/listenupapp/liveplan/internal/session"
)

// ProvideFallback provides the policy that fills missing metrics.
func ProvideFallback(i do.Injector) (*fallback.Policy, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return fallback.New(fallback.Config{
		Mode: fallback.Mode(cfg.Fallback.Mode),
		Seed: cfg.Fallback.Seed,
	}, log.WithStage("fallback").Logger)
}

// ProvidePipeline provides the planner pipeline.
func ProvidePipeline(i do.Injector) (*pipeline.Pipeline, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	fb := do.MustInvoke[*fallback.Policy](i)
	store := do.MustInvoke[*StoreHandle](i)

	pcfg, err := PipelineConfig(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pcfg, fb, store.Store, log), nil
}

// PipelineConfig translates the configuration into stage settings.
func PipelineConfig(cfg *config.Config) (pipeline.Config, error) {
	lang, err := language.Parse(cfg.Report.Language)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("report language %q: %w", cfg.Report.Language, err)
	}

	files := make(map[loader.Source]string, len(cfg.Paths.Files))
	for source, name := range cfg.Paths.Files {
		files[loader.Source(source)] = name
	}

	return pipeline.Config{
		OutputDir: cfg.Paths.OutputDir,
		Loader: loader.Config{
			DataDir:   cfg.Paths.DataDir,
			Files:     files,
			Seed:      cfg.Pipeline.Seed,
			Strict:    cfg.Pipeline.Strict,
			UseSample: cfg.Pipeline.UseSample,
		},
		Sessions: session.Config{SampleLimit: cfg.Pipeline.SampleLimit},
		Report: report.Config{
			Title:    cfg.Report.Title,
			Language: lang,
		},
		Charts: chart.Config{
			Width:  cfg.Report.ChartWidth,
			Height: cfg.Report.ChartHeight,
		},
		FallbackMode: cfg.Fallback.Mode,
		Strict:       cfg.Pipeline.Strict,
		RenderCharts: cfg.Report.Charts,
		Bundle:       cfg.Pipeline.Bundle,
	}, nil
}
