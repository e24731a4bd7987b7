package notification

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/stagevote/internal/notification/domain"
	"github.com/smallbiznis/stagevote/internal/notification/repository"
	"github.com/smallbiznis/stagevote/internal/notification/service"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(s domain.Service) domain.Dispatcher { return s }),
)
