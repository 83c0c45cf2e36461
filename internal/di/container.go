// Package di provides dependency injection configuration for the planner.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/liveplan/internal/config"
	"github.com/listenupapp/liveplan/internal/di/providers"
	"github.com/listenupapp/liveplan/internal/fallback"
	"github.com/listenupapp/liveplan/internal/logger"
	"github.com/listenupapp/liveplan/internal/pipeline"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Run history
	do.Provide(injector, providers.ProvideStore)

	// Stages
	do.Provide(injector, providers.ProvideFallback)
	do.Provide(injector, providers.ProvidePipeline)

	return injector
}

// Bootstrap resolves every service so configuration and database errors
// surface before a run starts.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*fallback.Policy](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*pipeline.Pipeline](injector); err != nil {
		return err
	}
	return nil
}
