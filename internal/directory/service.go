package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
	"github.com/hackgods/hospital-appointment-booking/internal/blob"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

var (
	ErrNegativeQuota     = apperr.Validation("invalid_daily_quota", "daily_quota must be zero or more")
	ErrNoDepartments     = apperr.Validation("departments_required", "at least one department is required")
	ErrUnknownDepartment = apperr.Validation("unknown_department", "one or more departments do not exist")
	ErrQueryRequired     = apperr.Validation("query_required", "Search query is required.")
)

type Service struct {
	repo  Repository
	blobs blob.Store
	log   *logger.Logger
}

func NewService(repo Repository, blobs blob.Store, log *logger.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, log: log}
}

func requireFields(fields map[string]string) error {
	var missing []string
	for _, name := range []string{"name", "description", "specialization"} {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return apperr.Validationf("missing_fields", "missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// storeImage saves up when present. Upload failures fail the request.
func (s *Service) storeImage(ctx context.Context, up *blob.Upload) (*blob.Ref, error) {
	if up == nil {
		return nil, nil
	}
	ref, err := s.blobs.Put(ctx, *up)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	return ref, nil
}

// Departments

func (s *Service) CreateDepartment(ctx context.Context, in DepartmentInput, img *blob.Upload) (*Department, error) {
	if err := requireFields(map[string]string{"name": in.Name, "description": in.Description}); err != nil {
		return nil, err
	}
	quota := DefaultDailyQuota
	if in.DailyQuota != nil {
		quota = *in.DailyQuota
	}
	if quota < 0 {
		return nil, ErrNegativeQuota
	}

	ref, err := s.storeImage(ctx, img)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateDepartment(ctx, &Department{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		DailyQuota:  quota,
		Image:       ref,
	})
	if err != nil {
		blob.DeleteQuietly(ctx, s.blobs, ref, s.log)
		return nil, fmt.Errorf("create department: %w", err)
	}
	return created, nil
}

func (s *Service) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	d, err := s.repo.GetDepartment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return d, nil
}

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	ds, err := s.repo.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	if ds == nil {
		ds = []Department{}
	}
	return ds, nil
}

// UpdateDepartment applies patch and swaps the image when img is set. The
// previous image is removed once the new one is saved.
func (s *Service) UpdateDepartment(ctx context.Context, id uuid.UUID, patch DepartmentPatch, img *blob.Upload) (*Department, error) {
	current, err := s.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.DailyQuota != nil {
		next.DailyQuota = *patch.DailyQuota
	}
	if err := requireFields(map[string]string{"name": next.Name, "description": next.Description}); err != nil {
		return nil, err
	}
	if next.DailyQuota < 0 {
		return nil, ErrNegativeQuota
	}

	ref, err := s.storeImage(ctx, img)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		next.Image = ref
	}

	updated, err := s.repo.UpdateDepartment(ctx, &next)
	if err != nil {
		blob.DeleteQuietly(ctx, s.blobs, ref, s.log)
		if errors.Is(err, ErrDepartmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update department: %w", err)
	}
	if ref != nil {
		blob.DeleteQuietly(ctx, s.blobs, current.Image, s.log)
	}
	return updated, nil
}

// DeleteDepartment removes the department. Doctors, appointments and feedback
// that reference it keep the dangling id.
func (s *Service) DeleteDepartment(ctx context.Context, id uuid.UUID) error {
	current, err := s.GetDepartment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDepartment(ctx, id); err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return err
		}
		return fmt.Errorf("delete department: %w", err)
	}
	blob.DeleteQuietly(ctx, s.blobs, current.Image, s.log)
	return nil
}

// Doctors

func (s *Service) resolveDepartments(ctx context.Context, ids []uuid.UUID) ([]DepartmentSummary, error) {
	seen := make(map[uuid.UUID]bool, len(ids))
	var unique []uuid.UUID
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, ErrNoDepartments
	}

	n, err := s.repo.CountDepartments(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("check departments: %w", err)
	}
	if n != len(unique) {
		return nil, ErrUnknownDepartment
	}

	out := make([]DepartmentSummary, len(unique))
	for i, id := range unique {
		out[i] = DepartmentSummary{ID: id}
	}
	return out, nil
}

func (s *Service) CreateDoctor(ctx context.Context, in DoctorInput, img *blob.Upload) (*Doctor, error) {
	if err := requireFields(map[string]string{"name": in.Name, "specialization": in.Specialization}); err != nil {
		return nil, err
	}
	deps, err := s.resolveDepartments(ctx, in.DepartmentIDs)
	if err != nil {
		return nil, err
	}

	ref, err := s.storeImage(ctx, img)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateDoctor(ctx, &Doctor{
		Name:           strings.TrimSpace(in.Name),
		Specialization: strings.TrimSpace(in.Specialization),
		Departments:    deps,
		Image:          ref,
	})
	if err != nil {
		blob.DeleteQuietly(ctx, s.blobs, ref, s.log)
		return nil, fmt.Errorf("create doctor: %w", err)
	}
	return created, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.repo.GetDoctor(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	ds, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	if ds == nil {
		ds = []Doctor{}
	}
	return ds, nil
}

func (s *Service) ListDoctorsByDepartment(ctx context.Context, departmentID uuid.UUID) ([]Doctor, error) {
	if _, err := s.GetDepartment(ctx, departmentID); err != nil {
		return nil, err
	}
	ds, err := s.repo.ListDoctorsByDepartment(ctx, departmentID)
	if err != nil {
		return nil, fmt.Errorf("list doctors by department: %w", err)
	}
	if ds == nil {
		ds = []Doctor{}
	}
	return ds, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, patch DoctorPatch, img *blob.Upload) (*Doctor, error) {
	current, err := s.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Specialization != nil {
		next.Specialization = strings.TrimSpace(*patch.Specialization)
	}
	if err := requireFields(map[string]string{"name": next.Name, "specialization": next.Specialization}); err != nil {
		return nil, err
	}
	if patch.DepartmentIDs != nil {
		deps, err := s.resolveDepartments(ctx, patch.DepartmentIDs)
		if err != nil {
			return nil, err
		}
		next.Departments = deps
	}

	ref, err := s.storeImage(ctx, img)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		next.Image = ref
	}

	updated, err := s.repo.UpdateDoctor(ctx, &next)
	if err != nil {
		blob.DeleteQuietly(ctx, s.blobs, ref, s.log)
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update doctor: %w", err)
	}
	if ref != nil {
		blob.DeleteQuietly(ctx, s.blobs, current.Image, s.log)
	}
	return updated, nil
}

func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	current, err := s.GetDoctor(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDoctor(ctx, id); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return err
		}
		return fmt.Errorf("delete doctor: %w", err)
	}
	blob.DeleteQuietly(ctx, s.blobs, current.Image, s.log)
	return nil
}

// Search matches query case-insensitively against department names and
// doctor names and specializations.
func (s *Service) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}

	deps, err := s.repo.SearchDepartments(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search departments: %w", err)
	}
	docs, err := s.repo.SearchDoctors(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search doctors: %w", err)
	}

	if deps == nil {
		deps = []Department{}
	}
	if docs == nil {
		docs = []Doctor{}
	}
	return &SearchResult{Departments: deps, Doctors: docs}, nil
}
