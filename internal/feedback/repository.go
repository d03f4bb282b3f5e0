package feedback

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
)

var (
	ErrFeedbackNotFound   = apperr.NotFound("feedback_not_found", "feedback not found")
	ErrDepartmentNotFound = apperr.NotFound("department_not_found", "department not found")
	ErrAlreadySubmitted   = apperr.Conflict("feedback_exists", "You have already submitted feedback for this appointment.")
)

type Repository interface {
	DepartmentExists(ctx context.Context, id uuid.UUID) (bool, error)
	// Exists reports whether userID already left feedback for appointmentID.
	Exists(ctx context.Context, appointmentID, userID uuid.UUID) (bool, error)
	Create(ctx context.Context, f *Feedback) (*Feedback, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Feedback, error)
	GetForAppointment(ctx context.Context, appointmentID, userID uuid.UUID) (*Feedback, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Feedback, error)
	ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]Feedback, error)
	ListAll(ctx context.Context) ([]Feedback, error)
	Update(ctx context.Context, f *Feedback) (*Feedback, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
