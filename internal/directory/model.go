package directory

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/blob"
)

// DefaultDailyQuota applies when a department is created without a quota.
const DefaultDailyQuota = 50

type Department struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DailyQuota  int       `json:"daily_quota"`
	Image       *blob.Ref `json:"image,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DepartmentSummary is how a doctor lists the departments they work in.
type DepartmentSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Doctor struct {
	ID             uuid.UUID           `json:"id"`
	Name           string              `json:"name"`
	Specialization string              `json:"specialization"`
	Departments    []DepartmentSummary `json:"departments"`
	Image          *blob.Ref           `json:"image,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func (d *Doctor) departmentIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(d.Departments))
	for _, dep := range d.Departments {
		ids = append(ids, dep.ID)
	}
	return ids
}

type DepartmentInput struct {
	Name        string
	Description string
	DailyQuota  *int
}

// DepartmentPatch changes only the fields that are set.
type DepartmentPatch struct {
	Name        *string
	Description *string
	DailyQuota  *int
}

type DoctorInput struct {
	Name           string
	Specialization string
	DepartmentIDs  []uuid.UUID
}

// DoctorPatch changes only the fields that are set; a nil DepartmentIDs keeps
// the current departments.
type DoctorPatch struct {
	Name           *string
	Specialization *string
	DepartmentIDs  []uuid.UUID
}

type SearchResult struct {
	Departments []Department `json:"departments"`
	Doctors     []Doctor     `json:"doctors"`
}
