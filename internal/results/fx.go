package results

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/stagevote/internal/results/service"
)

var Module = fx.Module("results.service",
	fx.Provide(service.New),
)
