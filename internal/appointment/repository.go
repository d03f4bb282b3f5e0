package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
)

var (
	ErrAppointmentNotFound  = apperr.NotFound("appointment_not_found", "appointment not found")
	ErrDepartmentNotFound   = apperr.NotFound("department_not_found", "department not found")
	ErrNotificationNotFound = apperr.NotFound("notification_not_found", "notification not found")
)

// Repository is the persistence the booking workflow depends on.
type Repository interface {
	GetDepartmentRef(ctx context.Context, id uuid.UUID) (*DepartmentRef, error)
	ListDepartmentRefs(ctx context.Context) ([]DepartmentRef, error)

	CountForDepartmentDay(ctx context.Context, departmentID uuid.UUID, day time.Time) (int, error)
	CountByDepartmentForDay(ctx context.Context, day time.Time) (map[uuid.UUID]int, error)
	DepartmentTotals(ctx context.Context, from, to time.Time) ([]DepartmentTotal, error)

	CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	ListAppointments(ctx context.Context, filter ListFilter) ([]Appointment, error)

	// FindUnsentForDay returns every appointment on day whose reminder has
	// not been sent, whatever its status.
	FindUnsentForDay(ctx context.Context, day time.Time) ([]Appointment, error)
	// FindForDay returns every appointment on day.
	FindForDay(ctx context.Context, day time.Time) ([]Appointment, error)
	// ClaimReminder flips notification_sent to true and reports whether this
	// call did the flip.
	ClaimReminder(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseReminder(ctx context.Context, id uuid.UUID) error

	InsertNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error)
}
