package backup

import (
	"github.com/wattshare/wattshare/internal/backup/repository"
	"github.com/wattshare/wattshare/internal/backup/service"
	"go.uber.org/fx"
)

var Module = fx.Module("backup.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
