package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Message describes one notification to deliver.
type Message struct {
	Type     NotificationType
	Title    string
	Body     string
	UserID   snowflake.ID
	Metadata map[string]interface{}
}

// Dispatcher delivers notifications best-effort. Dispatch never blocks the
// caller on delivery and never returns an error; failures are logged only.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message)
}

type Service interface {
	Dispatcher

	ListMine(ctx context.Context, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvalidUser = errors.New("invalid_user")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("notification_not_found")
)
