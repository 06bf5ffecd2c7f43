package receipt

import (
	"github.com/wattshare/wattshare/internal/receipt/repository"
	"github.com/wattshare/wattshare/internal/receipt/service"
	"go.uber.org/fx"
)

var Module = fx.Module("receipt.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
