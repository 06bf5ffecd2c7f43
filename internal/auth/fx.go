package auth

import (
	"github.com/wattshare/wattshare/internal/auth/repository"
	"github.com/wattshare/wattshare/internal/auth/service"
	"github.com/wattshare/wattshare/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	session.Module,
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
