package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/stagevote/internal/auth"
	authdomain "github.com/smallbiznis/stagevote/internal/auth/domain"
	authmiddleware "github.com/smallbiznis/stagevote/internal/auth/middleware"
	"github.com/smallbiznis/stagevote/internal/auth/session"
	"github.com/smallbiznis/stagevote/internal/config"
	"github.com/smallbiznis/stagevote/internal/contest"
	contestdomain "github.com/smallbiznis/stagevote/internal/contest/domain"
	"github.com/smallbiznis/stagevote/internal/notification"
	notificationdomain "github.com/smallbiznis/stagevote/internal/notification/domain"
	"github.com/smallbiznis/stagevote/internal/observability"
	obslogger "github.com/smallbiznis/stagevote/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/stagevote/internal/observability/metrics"
	obstracing "github.com/smallbiznis/stagevote/internal/observability/tracing"
	"github.com/smallbiznis/stagevote/internal/order"
	orderdomain "github.com/smallbiznis/stagevote/internal/order/domain"
	"github.com/smallbiznis/stagevote/internal/providers/email"
	"github.com/smallbiznis/stagevote/internal/providers/pdf"
	"github.com/smallbiznis/stagevote/internal/ratelimit"
	"github.com/smallbiznis/stagevote/internal/results"
	resultsdomain "github.com/smallbiznis/stagevote/internal/results/domain"
	"github.com/smallbiznis/stagevote/internal/vote"
	votedomain "github.com/smallbiznis/stagevote/internal/vote/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	auth.Module,
	contest.Module,
	order.Module,
	vote.Module,
	results.Module,
	notification.Module,
	email.Module,
	pdf.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Logger:          log.Named("http"),
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(authmiddleware.Network())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	sessions        *session.Manager
	authSvc         authdomain.Service
	contestSvc      contestdomain.Service
	orderSvc        orderdomain.Service
	voteSvc         votedomain.Service
	resultsSvc      resultsdomain.Service
	notificationSvc notificationdomain.Service
	voteLimiter     *ratelimit.VoteCastLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	Sessions        *session.Manager
	AuthSvc         authdomain.Service
	ContestSvc      contestdomain.Service
	OrderSvc        orderdomain.Service
	VoteSvc         votedomain.Service
	ResultsSvc      resultsdomain.Service
	NotificationSvc notificationdomain.Service
	VoteLimiter     *ratelimit.VoteCastLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		sessions:        p.Sessions,
		authSvc:         p.AuthSvc,
		contestSvc:      p.ContestSvc,
		orderSvc:        p.OrderSvc,
		voteSvc:         p.VoteSvc,
		resultsSvc:      p.ResultsSvc,
		notificationSvc: p.NotificationSvc,
		voteLimiter:     p.VoteLimiter,
	}

	svc.engine.Use(authmiddleware.Session(svc.authSvc, svc.sessions))

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerPublicRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	grp := s.engine.Group("/auth")

	grp.POST("/signup", s.Signup)
	grp.POST("/login", s.Login)
	grp.POST("/logout", s.Logout)
	grp.GET("/me", s.Me)
	grp.POST("/change-password", authmiddleware.RequireAuth(), s.ChangePassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Contests (organizer) --------
	api.POST("/contests", authmiddleware.RequireAuth(), s.CreateContest)
	api.GET("/contests", authmiddleware.RequireAuth(), s.ListContests)
	api.GET("/contests/:id", authmiddleware.RequireAuth(), s.GetContest)
	api.PATCH("/contests/:id", authmiddleware.RequireAuth(), s.UpdateContest)
	api.POST("/contests/:id/contestants", authmiddleware.RequireAuth(), s.AddContestant)
	api.PATCH("/contests/:id/contestants/:contestantId/status", authmiddleware.RequireAuth(), s.SetContestantStatus)
	api.GET("/contests/:id/results", authmiddleware.RequireAuth(), s.ContestResults)

	// -------- Vote packages --------
	api.POST("/contests/:id/packages", authmiddleware.RequireAuth(), s.CreateVotePackage)
	api.PATCH("/contests/:id/packages/:packageId", authmiddleware.RequireAuth(), s.UpdateVotePackage)

	// -------- Orders --------
	api.POST("/orders", authmiddleware.RequireAuth(), s.CreateOrder)
	api.GET("/orders", authmiddleware.RequireAuth(), s.ListMyOrders)
	api.GET("/orders/:id", authmiddleware.RequireAuth(), s.GetOrder)
	api.GET("/orders/:id/receipt", authmiddleware.RequireAuth(), s.OrderReceipt)

	// Payment-verification callback from the payment provider.
	api.POST("/payments/callback", s.PaymentCallback)

	// -------- Notifications --------
	api.GET("/notifications", authmiddleware.RequireAuth(), s.ListNotifications)
	api.POST("/notifications/:id/read", authmiddleware.RequireAuth(), s.MarkNotificationRead)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public")

	public.GET("/contests/:id", s.PublicContest)
	public.GET("/contests/:id/packages", s.PublicVotePackages)
	public.GET("/contests/:id/results", s.PublicResults)

	public.POST("/contests/:id/vote", s.VoteCastRateLimit(), s.CastFreeVote)
	public.POST("/contests/:id/vote/paid", s.VoteCastRateLimit(), s.CastPaidVote)
}
