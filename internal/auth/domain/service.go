package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

type LoginResult struct {
	User      *User
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}

type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error

	// Authenticate resolves a raw session token to its live session.
	Authenticate(ctx context.Context, rawToken string) (*Session, error)

	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
	ChangePassword(ctx context.Context, userID snowflake.ID, current, next string) error

	// EmailForUser resolves a recipient address for notification delivery.
	EmailForUser(ctx context.Context, userID snowflake.ID) (string, error)
}
