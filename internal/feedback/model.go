package feedback

import (
	"time"

	"github.com/google/uuid"
)

type Feedback struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	DepartmentID   uuid.UUID `json:"department_id"`
	DepartmentName string    `json:"department_name,omitempty"`
	AppointmentID  uuid.UUID `json:"appointment_id"`
	Rating         int       `json:"rating"`
	Comments       string    `json:"comments"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Input struct {
	DepartmentID  uuid.UUID
	AppointmentID uuid.UUID
	Rating        int
	Comments      string
}

type Patch struct {
	Rating   *int
	Comments *string
}
