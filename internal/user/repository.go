package user

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
	"github.com/hackgods/hospital-appointment-booking/internal/auth"
)

var (
	ErrUserNotFound = apperr.NotFound("user_not_found", "user not found")
	ErrEmailTaken   = apperr.Conflict("email_taken", "an account with this email already exists")
)

type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByRole(ctx context.Context, role auth.Role) ([]User, error)
	UpdateProfile(ctx context.Context, u *User) (*User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error

	SetResetToken(ctx context.Context, id uuid.UUID, hash string, expires time.Time) error
	// GetByResetToken finds the user whose token hash matches and is still
	// valid at now.
	GetByResetToken(ctx context.Context, hash string, now time.Time) (*User, error)
	// ConsumeResetToken stores the new password and clears the token.
	ConsumeResetToken(ctx context.Context, id uuid.UUID, passwordHash string) error
}
