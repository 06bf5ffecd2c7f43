package reconcile

import (
	"github.com/wattshare/wattshare/internal/reconcile/repository"
	"github.com/wattshare/wattshare/internal/reconcile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reconcile.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
