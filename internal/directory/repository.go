package directory

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
)

var (
	ErrDepartmentNotFound = apperr.NotFound("department_not_found", "department not found")
	ErrDoctorNotFound     = apperr.NotFound("doctor_not_found", "doctor not found")
)

type Repository interface {
	CreateDepartment(ctx context.Context, d *Department) (*Department, error)
	GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	UpdateDepartment(ctx context.Context, d *Department) (*Department, error)
	DeleteDepartment(ctx context.Context, id uuid.UUID) error
	// CountDepartments reports how many of ids exist.
	CountDepartments(ctx context.Context, ids []uuid.UUID) (int, error)

	CreateDoctor(ctx context.Context, d *Doctor) (*Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	ListDoctorsByDepartment(ctx context.Context, departmentID uuid.UUID) ([]Doctor, error)
	UpdateDoctor(ctx context.Context, d *Doctor) (*Doctor, error)
	DeleteDoctor(ctx context.Context, id uuid.UUID) error

	SearchDepartments(ctx context.Context, query string) ([]Department, error)
	SearchDoctors(ctx context.Context, query string) ([]Doctor, error)
}
