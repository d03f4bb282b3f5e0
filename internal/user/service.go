package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
	"github.com/hackgods/hospital-appointment-booking/internal/auth"
	"github.com/hackgods/hospital-appointment-booking/internal/blob"
	"github.com/hackgods/hospital-appointment-booking/internal/config"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

const MinPasswordLength = 6

var (
	ErrInvalidCredentials = apperr.Unauthorized("invalid_credentials", "invalid email or password")
	ErrRoleNotAllowed     = apperr.Forbidden("role_not_allowed", "this account cannot sign in here")
	ErrWrongPassword      = apperr.Validation("wrong_password", "current password is incorrect")
	ErrWeakPassword       = apperr.Validationf("weak_password", "password must be at least %d characters", MinPasswordLength)
	ErrInvalidResetToken  = apperr.Validation("invalid_reset_token", "reset link is invalid or has expired")
	ErrInvalidRole        = apperr.Validation("invalid_role", "role must be admin, staff or patient")
	ErrNothingToUpdate    = apperr.Validation("nothing_to_update", "no changes supplied")
)

type Service struct {
	repo     Repository
	blobs    blob.Store
	issuer   *auth.Issuer
	notifier ResetNotifier
	log      *logger.Logger

	secret   string
	resetTTL time.Duration
	baseURL  string
	now      func() time.Time
}

func NewService(repo Repository, blobs blob.Store, issuer *auth.Issuer, notifier ResetNotifier, cfg config.Config, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		blobs:    blobs,
		issuer:   issuer,
		notifier: notifier,
		log:      log,
		secret:   cfg.JWTSecret,
		resetTTL: cfg.ResetTokenTTL,
		baseURL:  cfg.PublicBaseURL,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (in SignupInput) validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"firstname", in.Firstname},
		{"lastname", in.Lastname},
		{"email", in.Email},
		{"password", in.Password},
		{"contact_number", in.ContactNumber},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return apperr.Validationf("missing_fields", "missing required fields: %s", strings.Join(missing, ", "))
	}
	if !strings.Contains(in.Email, "@") {
		return apperr.Validation("invalid_email", "email address is not valid")
	}
	if len(in.Password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// SignupPatient registers a self-service patient account.
func (s *Service) SignupPatient(ctx context.Context, in SignupInput) (*User, error) {
	return s.create(ctx, in, auth.RolePatient, nil)
}

// CreateAccount is used by admins to open staff, admin or patient accounts.
func (s *Service) CreateAccount(ctx context.Context, in SignupInput, role auth.Role, img *blob.Upload) (*User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	return s.create(ctx, in, role, img)
}

func (s *Service) create(ctx context.Context, in SignupInput, role auth.Role, img *blob.Upload) (*User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var ref *blob.Ref
	if img != nil {
		if ref, err = s.blobs.Put(ctx, *img); err != nil {
			return nil, fmt.Errorf("store image: %w", err)
		}
	}

	created, err := s.repo.Create(ctx, &User{
		Firstname:     strings.TrimSpace(in.Firstname),
		Lastname:      strings.TrimSpace(in.Lastname),
		Email:         normalizeEmail(in.Email),
		PasswordHash:  hash,
		ContactNumber: strings.TrimSpace(in.ContactNumber),
		Role:          role,
		Image:         ref,
	})
	if err != nil {
		blob.DeleteQuietly(ctx, s.blobs, ref, s.log)
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.WithContext(ctx).
		WithField("user_id", created.ID).
		WithField("role", created.Role).
		Info("account created")
	return created, nil
}

// Login checks credentials and issues a token. When roles is non-empty the
// account must hold one of them.
func (s *Service) Login(ctx context.Context, email, password string, roles ...auth.Role) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.CheckPassword(u.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if len(roles) > 0 && !hasRole(u.Role, roles) {
		return nil, ErrRoleNotAllowed
	}

	token, err := s.issuer.Issue(u.Identity())
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: u}, nil
}

func hasRole(role auth.Role, allowed []auth.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func (s *Service) ListByRole(ctx context.Context, role auth.Role) ([]User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	users, err := s.repo.ListByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch, img *blob.Upload) (*User, error) {
	if patch == (ProfilePatch{}) && img == nil {
		return nil, ErrNothingToUpdate
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}

	next := *current
	if patch.Firstname != nil {
		next.Firstname = strings.TrimSpace(*patch.Firstname)
	}
	if patch.Lastname != nil {
		next.Lastname = strings.TrimSpace(*patch.Lastname)
	}
	if patch.Email != nil {
		next.Email = normalizeEmail(*patch.Email)
		if !strings.Contains(next.Email, "@") {
			return nil, apperr.Validation("invalid_email", "email address is not valid")
		}
	}
	if patch.ContactNumber != nil {
		next.ContactNumber = strings.TrimSpace(*patch.ContactNumber)
	}
	if next.Firstname == "" || next.Lastname == "" {
		return nil, apperr.Validation("missing_fields", "firstname and lastname cannot be empty")
	}

	if img != nil {
		ref, err := s.blobs.Put(ctx, *img)
		if err != nil {
			return nil, fmt.Errorf("store image: %w", err)
		}
		next.Image = ref
	}

	updated, err := s.repo.UpdateProfile(ctx, &next)
	if err != nil {
		if img != nil {
			blob.DeleteQuietly(ctx, s.blobs, next.Image, s.log)
		}
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}

	if img != nil {
		blob.DeleteQuietly(ctx, s.blobs, current.Image, s.log)
	}
	return updated, nil
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get user %s: %w", id, err)
	}

	ok, err := auth.CheckPassword(u.PasswordHash, current)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongPassword
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// SetPassword replaces a password without the current one. Admin only.
func (s *Service) SetPassword(ctx context.Context, id uuid.UUID, next string) error {
	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return fmt.Errorf("set password for %s: %w", id, err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get user %s: %w", id, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	blob.DeleteQuietly(ctx, s.blobs, current.Image, s.log)
	return nil
}

// RequestPasswordReset issues a reset token when the email is known. Unknown
// emails succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return apperr.Validation("missing_fields", "email is required")
	}

	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}

	raw, hashed, err := auth.NewResetToken(s.secret)
	if err != nil {
		return err
	}
	if err := s.repo.SetResetToken(ctx, u.ID, hashed, s.now().Add(s.resetTTL)); err != nil {
		return err
	}
	if err := s.notifier.SendReset(ctx, u, resetLink(s.baseURL, raw)); err != nil {
		return fmt.Errorf("send reset link: %w", err)
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if strings.TrimSpace(token) == "" {
		return ErrInvalidResetToken
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}

	u, err := s.repo.GetByResetToken(ctx, auth.HashResetToken(s.secret, token), s.now())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.repo.ConsumeResetToken(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.log.WithContext(ctx).WithField("user_id", u.ID).Info("password reset")
	return nil
}
