package contest

import (
	"github.com/smallbiznis/stagevote/internal/contest/repository"
	"github.com/smallbiznis/stagevote/internal/contest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contest.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
