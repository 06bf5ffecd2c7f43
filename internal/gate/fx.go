package gate

import (
	"github.com/wattshare/wattshare/internal/gate/repository"
	"github.com/wattshare/wattshare/internal/gate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("gate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
