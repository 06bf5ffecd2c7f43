package contribution

import (
	"github.com/wattshare/wattshare/internal/contribution/repository"
	"github.com/wattshare/wattshare/internal/contribution/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contribution.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
