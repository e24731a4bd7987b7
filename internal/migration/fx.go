package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	authdomain "github.com/smallbiznis/stagevote/internal/auth/domain"
	"github.com/smallbiznis/stagevote/internal/config"
	contestdomain "github.com/smallbiznis/stagevote/internal/contest/domain"
	notificationdomain "github.com/smallbiznis/stagevote/internal/notification/domain"
	orderdomain "github.com/smallbiznis/stagevote/internal/order/domain"
	"github.com/smallbiznis/stagevote/internal/seed"
	votedomain "github.com/smallbiznis/stagevote/internal/vote/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres databases (local sqlite, mysql) get the gorm
			// schema plus the uniqueness guards the engine relies on.
			if err := autoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.SeedDemoData {
			return seed.EnsureDemoData(conn)
		}
		return nil
	}),
)

func autoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&contestdomain.Contest{},
		&contestdomain.Contestant{},
		&orderdomain.VotePackage{},
		&orderdomain.VoteOrder{},
		&votedomain.Vote{},
		&notificationdomain.Notification{},
	); err != nil {
		return err
	}

	// MySQL has no partial indexes; there the engine's in-transaction
	// re-checks still hold, they just lose the constraint backstop.
	if conn.Dialector.Name() == "sqlite" {
		for _, stmt := range []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_member_free ON votes (user_id, contestant_id) WHERE vote_type = 'FREE' AND user_id IS NOT NULL`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_guest_contest ON votes (contest_id, ip_address) WHERE user_id IS NULL`,
		} {
			if err := conn.Exec(stmt).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
