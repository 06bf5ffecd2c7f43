package chronology

import (
	"github.com/wattshare/wattshare/internal/chronology/repository"
	"github.com/wattshare/wattshare/internal/chronology/service"
	"go.uber.org/fx"
)

var Module = fx.Module("chronology.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
