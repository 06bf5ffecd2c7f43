package observability

import (
	"os"

	"github.com/wattshare/wattshare/internal/config"
	"github.com/wattshare/wattshare/internal/observability/logger"
	"github.com/wattshare/wattshare/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		provideLoggerConfig,
		logger.New,
		metrics.NewHTTPMetrics,
	),
)

func provideLoggerConfig(cfg config.Config) logger.Config {
	format := os.Getenv("LOG_FORMAT")
	if format == "" && cfg.Environment == "development" {
		format = "console"
	}
	return logger.Config{
		ServiceName:   cfg.AppName,
		Environment:   cfg.Environment,
		Version:       cfg.AppVersion,
		Level:         os.Getenv("LOG_LEVEL"),
		Format:        format,
		IncludeCaller: true,
	}
}
