package meterreading

import (
	"github.com/wattshare/wattshare/internal/meterreading/repository"
	"github.com/wattshare/wattshare/internal/meterreading/service"
	"go.uber.org/fx"
)

var Module = fx.Module("meterreading.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
