package auth

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/stagevote/internal/auth/domain"
	"github.com/smallbiznis/stagevote/internal/auth/repository"
	"github.com/smallbiznis/stagevote/internal/auth/service"
	"github.com/smallbiznis/stagevote/internal/auth/session"
	notificationservice "github.com/smallbiznis/stagevote/internal/notification/service"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideSessions),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
	fx.Provide(func(s domain.Service) notificationservice.EmailDirectory { return s }),
)
