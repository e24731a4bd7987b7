package email

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/stagevote/internal/config"
)

var Module = fx.Module("providers.email",
	fx.Provide(func(cfg config.Config, log *zap.Logger) Provider {
		if cfg.Email.SMTPHost == "" {
			return NewNoop(log)
		}
		return NewSMTP(cfg.Email, log)
	}),
)
