package audit

import (
	"github.com/wattshare/wattshare/internal/audit/repository"
	"github.com/wattshare/wattshare/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
