package vote

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/stagevote/internal/vote/repository"
	"github.com/smallbiznis/stagevote/internal/vote/service"
)

var Module = fx.Module("vote.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
