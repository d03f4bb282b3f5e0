package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/auth"
	"github.com/hackgods/hospital-appointment-booking/internal/blob"
)

type User struct {
	ID            uuid.UUID `json:"id"`
	Firstname     string    `json:"firstname"`
	Lastname      string    `json:"lastname"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	ContactNumber string    `json:"contact_number"`
	Role          auth.Role `json:"role"`
	Image         *blob.Ref `json:"image,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (u *User) Identity() auth.Identity {
	return auth.Identity{UserID: u.ID, Role: u.Role}
}

type SignupInput struct {
	Firstname     string
	Lastname      string
	Email         string
	Password      string
	ContactNumber string
}

// ProfilePatch changes only the fields that are set.
type ProfilePatch struct {
	Firstname     *string
	Lastname      *string
	Email         *string
	ContactNumber *string
}

// Session is a successful login.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
