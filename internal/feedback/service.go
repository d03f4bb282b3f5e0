package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
	"github.com/hackgods/hospital-appointment-booking/internal/auth"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

var (
	ErrInvalidRating   = apperr.Validation("invalid_rating", "rating must be between 1 and 5")
	ErrNothingToUpdate = apperr.Validation("nothing_to_update", "no changes supplied")
)

type Service struct {
	repo Repository
	log  *logger.Logger
}

func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func validRating(r int) bool {
	return r >= 1 && r <= 5
}

func (in Input) validate() error {
	var missing []string
	if in.DepartmentID == uuid.Nil {
		missing = append(missing, "department")
	}
	if in.AppointmentID == uuid.Nil {
		missing = append(missing, "appointment")
	}
	if in.Rating == 0 {
		missing = append(missing, "rating")
	}
	if strings.TrimSpace(in.Comments) == "" {
		missing = append(missing, "comments")
	}
	if len(missing) > 0 {
		return apperr.Validationf("missing_fields", "missing required fields: %s", strings.Join(missing, ", "))
	}
	if !validRating(in.Rating) {
		return ErrInvalidRating
	}
	return nil
}

// Create records feedback from userID. Each user may leave one entry per
// appointment.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (*Feedback, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ok, err := s.repo.DepartmentExists(ctx, in.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("check department: %w", err)
	}
	if !ok {
		return nil, ErrDepartmentNotFound
	}

	exists, err := s.repo.Exists(ctx, in.AppointmentID, userID)
	if err != nil {
		return nil, fmt.Errorf("check existing feedback: %w", err)
	}
	if exists {
		return nil, ErrAlreadySubmitted
	}

	created, err := s.repo.Create(ctx, &Feedback{
		UserID:        userID,
		DepartmentID:  in.DepartmentID,
		AppointmentID: in.AppointmentID,
		Rating:        in.Rating,
		Comments:      strings.TrimSpace(in.Comments),
	})
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}

	s.log.WithContext(ctx).
		WithField("feedback_id", created.ID).
		WithField("appointment_id", created.AppointmentID).
		Info("feedback submitted")
	return created, nil
}

func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]Feedback, error) {
	return orEmpty(s.repo.ListByUser(ctx, userID))
}

func (s *Service) GetForAppointment(ctx context.Context, userID, appointmentID uuid.UUID) (*Feedback, error) {
	return s.repo.GetForAppointment(ctx, appointmentID, userID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Feedback, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListAll(ctx context.Context) ([]Feedback, error) {
	return orEmpty(s.repo.ListAll(ctx))
}

func (s *Service) ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]Feedback, error) {
	ok, err := s.repo.DepartmentExists(ctx, departmentID)
	if err != nil {
		return nil, fmt.Errorf("check department: %w", err)
	}
	if !ok {
		return nil, ErrDepartmentNotFound
	}
	return orEmpty(s.repo.ListByDepartment(ctx, departmentID))
}

// Update lets a user edit their own feedback. Staff may edit any entry.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id uuid.UUID, patch Patch) (*Feedback, error) {
	if patch.Rating == nil && patch.Comments == nil {
		return nil, ErrNothingToUpdate
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && current.UserID != actor.UserID {
		return nil, ErrFeedbackNotFound
	}

	next := *current
	if patch.Rating != nil {
		if !validRating(*patch.Rating) {
			return nil, ErrInvalidRating
		}
		next.Rating = *patch.Rating
	}
	if patch.Comments != nil {
		c := strings.TrimSpace(*patch.Comments)
		if c == "" {
			return nil, apperr.Validation("missing_fields", "comments cannot be empty")
		}
		next.Comments = c
	}

	updated, err := s.repo.Update(ctx, &next)
	if err != nil {
		return nil, fmt.Errorf("update feedback %s: %w", id, err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete feedback %s: %w", id, err)
	}
	return nil
}

func orEmpty(items []Feedback, err error) ([]Feedback, error) {
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Feedback{}
	}
	return items, nil
}
