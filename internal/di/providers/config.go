// Package providers contains dependency injection providers for the planner.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/liveplan/internal/config"
	"github.com/listenupapp/liveplan/internal/logger"
)

// ProvideConfig provides the pipeline configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Format:      cfg.Logger.Format,
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting liveplan",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_dir", cfg.Paths.DataDir,
		"output_dir", cfg.Paths.OutputDir,
		"sample", cfg.Pipeline.UseSample,
		"strict", cfg.Pipeline.Strict,
	)

	return log, nil
}
