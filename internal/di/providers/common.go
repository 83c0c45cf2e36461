package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/listenupapp/liveplan/internal/logger"
)

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
