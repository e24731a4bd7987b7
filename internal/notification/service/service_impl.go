package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smallbiznis/stagevote/internal/notification/domain"
	"github.com/smallbiznis/stagevote/internal/providers/email"
	"github.com/smallbiznis/stagevote/internal/userctx"
)

// EmailDirectory resolves a user's email address. Implemented by the auth
// module; optional so the dispatcher still persists in-app notifications
// when mail is not wired.
type EmailDirectory interface {
	EmailForUser(ctx context.Context, userID snowflake.ID) (string, error)
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Email     email.Provider `optional:"true"`
	Directory EmailDirectory `optional:"true"`
}

type notificationService struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	email     email.Provider
	directory EmailDirectory
}

func New(p Params) domain.Service {
	return &notificationService{
		db:        p.DB,
		log:       p.Log.Named("notification.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		email:     p.Email,
		directory: p.Directory,
	}
}

// Dispatch persists the notification and sends email out of band. Failures
// are logged and never reach the caller.
func (s *notificationService) Dispatch(ctx context.Context, msg domain.Message) {
	n := &domain.Notification{
		ID:       s.genID.Generate(),
		UserID:   msg.UserID,
		Type:     msg.Type,
		Title:    msg.Title,
		Message:  msg.Body,
		Metadata: datatypes.JSONMap(msg.Metadata),
	}
	if err := s.repo.Insert(ctx, s.db, n); err != nil {
		s.log.Warn("failed to persist notification",
			zap.String("user_id", msg.UserID.String()),
			zap.String("type", string(msg.Type)),
			zap.Error(err),
		)
		return
	}

	if s.email == nil || s.directory == nil {
		return
	}
	go s.sendEmail(msg)
}

func (s *notificationService) sendEmail(msg domain.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	to, err := s.directory.EmailForUser(ctx, msg.UserID)
	if err != nil || to == "" {
		if err != nil {
			s.log.Warn("failed to resolve notification recipient",
				zap.String("user_id", msg.UserID.String()),
				zap.Error(err),
			)
		}
		return
	}

	err = s.email.Send(ctx, email.Message{
		To:      to,
		Subject: msg.Title,
		Body:    msg.Body,
	})
	if err != nil {
		s.log.Warn("failed to send notification email",
			zap.String("user_id", msg.UserID.String()),
			zap.Error(err),
		)
	}
}

func (s *notificationService) ListMine(ctx context.Context, limit int) ([]domain.Notification, error) {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidUser
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, s.db, userID, limit)
}

func (s *notificationService) MarkRead(ctx context.Context, id snowflake.ID) error {
	userID, ok := userctx.UserIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidUser
	}
	if id == 0 {
		return domain.ErrInvalidID
	}

	updated, err := s.repo.MarkRead(ctx, s.db, userID, id)
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotFound
	}
	return nil
}
