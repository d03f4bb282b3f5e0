package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RolePatient:
		return true
	}
	return false
}

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

// IsStaff reports whether the caller may use administrative routes.
func (i Identity) IsStaff() bool {
	return i.Role == RoleAdmin || i.Role == RoleStaff
}

var (
	ErrMissingToken = apperr.Unauthorized("missing_token", "authorization token is required")
	ErrInvalidToken = apperr.Unauthorized("invalid_token", "invalid or expired token")
)

// Claims is the bearer token payload.
type Claims struct {
	UserID string `json:"id"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs an HS256 token for id valid for the issuer's ttl.
func (i *Issuer) Issue(id Identity) (string, error) {
	now := i.now()
	claims := &Claims{
		UserID: id.UserID.String(),
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (i *Issuer) Verify(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperr.Wrap(apperr.KindUnauthorized, "token_expired", "token has expired", err)
		}
		return Identity{}, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil || !claims.Role.Valid() {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: id, Role: claims.Role}, nil
}
