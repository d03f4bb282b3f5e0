package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
	"github.com/hackgods/hospital-appointment-booking/internal/auth"
	"github.com/hackgods/hospital-appointment-booking/internal/config"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
	redisclient "github.com/hackgods/hospital-appointment-booking/internal/redis"
)

var (
	ErrQuotaExceeded   = apperr.New(apperr.KindCapacity, "quota_exceeded", "no available slots")
	ErrBookingBusy     = apperr.New(apperr.KindBusy, "booking_busy", "department is busy taking bookings for this day, please retry")
	ErrInvalidStatus   = apperr.Validation("invalid_status", "status must be one of upcoming, completed, cancelled")
	ErrNothingToUpdate = apperr.Validation("nothing_to_update", "provide a status, date or time to update")
	ErrPatientStatus   = apperr.Forbidden("status_not_allowed", "patients may only cancel their appointments")
	ErrInvalidPeriod   = apperr.Validation("invalid_period", "year and month must describe a calendar month")
)

// quotaError names the department and day that are full.
func quotaError(dept string, day time.Time) error {
	msg := fmt.Sprintf("No available slots for %s on %s", dept, FormatDay(day))
	return apperr.Wrap(apperr.KindCapacity, "quota_exceeded", msg, ErrQuotaExceeded)
}

// admits is the quota rule: a booking fits while fewer than quota
// appointments exist for the day.
func admits(quota, count int) bool {
	return count < quota
}

func quotaLockKey(departmentID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("lock:quota:%s:%s", departmentID, FormatDay(day))
}

type Service struct {
	repo   Repository
	locker redisclient.Locker
	marker redisclient.Marker
	cfg    config.Config
	log    *logger.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, marker redisclient.Marker, cfg config.Config, log *logger.Logger) *Service {
	loc, err := cfg.Location()
	if err != nil {
		log.WithComponent("appointment").WithError(err).
			WithField("timezone", cfg.TimeZone).
			Warn("unknown timezone, reminder days follow UTC")
		loc = time.UTC
	}
	return &Service{
		repo:   repo,
		locker: locker,
		marker: marker,
		cfg:    cfg,
		log:    log,
		loc:    loc,
		now:    time.Now,
	}
}

// BookingRequest carries everything a patient submits to book a visit.
type BookingRequest struct {
	UserID        uuid.UUID
	DepartmentID  uuid.UUID
	Description   string
	Date          time.Time
	Time          string
	PatientType   PatientType
	HospitalNo    string
	Lastname      string
	Firstname     string
	Middlename    string
	Age           int
	Gender        Gender
	MaritalStatus MaritalStatus
	Address       string
	MobileNumber  string
	DateOfBirth   *time.Time
	PlaceOfBirth  string
	Guardian      string
	Occupation    string

	// ByStaff marks a booking made through the admin desk, which must also
	// name a time.
	ByStaff bool
}

func (r BookingRequest) Validate() error {
	var missing []string
	if r.DepartmentID == uuid.Nil {
		missing = append(missing, "department")
	}
	if r.Date.IsZero() {
		missing = append(missing, "date")
	}
	if r.PatientType == "" {
		missing = append(missing, "patient_type")
	}
	if strings.TrimSpace(r.Lastname) == "" {
		missing = append(missing, "lastname")
	}
	if strings.TrimSpace(r.Firstname) == "" {
		missing = append(missing, "firstname")
	}
	if r.Gender == "" {
		missing = append(missing, "gender")
	}
	if r.MaritalStatus == "" {
		missing = append(missing, "marital_status")
	}
	if r.PatientType == PatientOld && strings.TrimSpace(r.HospitalNo) == "" {
		missing = append(missing, "hospital_no")
	}
	if r.ByStaff && strings.TrimSpace(r.Time) == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return apperr.Validationf("missing_fields", "missing required fields: %s", strings.Join(missing, ", "))
	}

	if r.PatientType != PatientNew && r.PatientType != PatientOld {
		return apperr.Validation("invalid_patient_type", "patient_type must be new or old")
	}
	if r.Age <= 0 {
		return apperr.Validation("invalid_age", "age must be a positive number")
	}
	if r.Gender != GenderMale && r.Gender != GenderFemale {
		return apperr.Validation("invalid_gender", "gender must be male or female")
	}
	if !r.MaritalStatus.Valid() {
		return apperr.Validation("invalid_marital_status", "marital_status must be Single, Married, Separated, Widow or Widower")
	}
	return nil
}

func (r BookingRequest) appointment() *Appointment {
	a := &Appointment{
		UserID:        r.UserID,
		DepartmentID:  r.DepartmentID,
		Description:   strings.TrimSpace(r.Description),
		Date:          DayOf(r.Date),
		Time:          strings.TrimSpace(r.Time),
		PatientType:   r.PatientType,
		Status:        StatusUpcoming,
		Lastname:      strings.TrimSpace(r.Lastname),
		Firstname:     strings.TrimSpace(r.Firstname),
		Middlename:    strings.TrimSpace(r.Middlename),
		Age:           r.Age,
		Gender:        r.Gender,
		MaritalStatus: r.MaritalStatus,
		Address:       r.Address,
		MobileNumber:  r.MobileNumber,
		DateOfBirth:   r.DateOfBirth,
		PlaceOfBirth:  r.PlaceOfBirth,
		Guardian:      r.Guardian,
		Occupation:    r.Occupation,
	}
	if r.PatientType == PatientOld {
		a.HospitalNo = strings.TrimSpace(r.HospitalNo)
	}
	return a
}

// Book admits the request if the department still has room on that day.
// The count and the insert run under a per (department, day) lock, so
// concurrent bookings cannot push the day past its quota.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	dept, err := s.repo.GetDepartmentRef(ctx, req.DepartmentID)
	if err != nil {
		if errors.Is(err, ErrDepartmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load department: %w", err)
	}

	appt := req.appointment()

	var created *Appointment
	err = s.withQuota(ctx, dept, appt.Date, func(lockCtx context.Context) error {
		saved, createErr := s.repo.CreateAppointment(lockCtx, appt)
		if createErr != nil {
			return fmt.Errorf("create appointment: %w", createErr)
		}
		created = saved
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithComponent("appointment").WithFields(map[string]interface{}{
		"appointment_id": created.ID,
		"department_id":  dept.ID,
		"date":           FormatDay(created.Date),
	}).Info("appointment booked")

	return created, nil
}

func (s *Service) withQuota(ctx context.Context, dept *DepartmentRef, day time.Time, fn func(ctx context.Context) error) error {
	err := s.locker.WithLock(ctx, quotaLockKey(dept.ID, day), func(lockCtx context.Context) error {
		count, err := s.repo.CountForDepartmentDay(lockCtx, dept.ID, day)
		if err != nil {
			return fmt.Errorf("count appointments: %w", err)
		}
		if !admits(dept.DailyQuota, count) {
			return quotaError(dept.Name, day)
		}
		return fn(lockCtx)
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return ErrBookingBusy
	}
	return err
}

// UpdateRequest holds the fields a status change or reschedule may set.
type UpdateRequest struct {
	Status *Status
	Date   *time.Time
	Time   *string
}

// Update applies a status change and/or reschedule, then notifies the owner.
// Staff may do anything; patients may only cancel or move their own visits.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id uuid.UUID, req UpdateRequest) (*Appointment, error) {
	if req.Status == nil && req.Date == nil && req.Time == nil {
		return nil, ErrNothingToUpdate
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	current, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && req.Status != nil && *req.Status != current.Status && *req.Status != StatusCancelled {
		return nil, ErrPatientStatus
	}

	next := *current
	if req.Status != nil {
		next.Status = *req.Status
	}
	if req.Time != nil {
		next.Time = strings.TrimSpace(*req.Time)
	}
	moved := false
	if req.Date != nil {
		day := DayOf(*req.Date)
		if !day.Equal(current.Date) {
			next.Date = day
			next.NotificationSent = false
			moved = true
		}
	}

	var updated *Appointment
	save := func(ctx context.Context) error {
		saved, saveErr := s.repo.UpdateAppointment(ctx, &next)
		if saveErr != nil {
			if errors.Is(saveErr, ErrAppointmentNotFound) {
				return saveErr
			}
			return fmt.Errorf("update appointment: %w", saveErr)
		}
		updated = saved
		return nil
	}

	deptName := current.DepartmentName
	if moved {
		dept, deptErr := s.repo.GetDepartmentRef(ctx, current.DepartmentID)
		if deptErr != nil {
			if errors.Is(deptErr, ErrDepartmentNotFound) {
				return nil, deptErr
			}
			return nil, fmt.Errorf("load department: %w", deptErr)
		}
		deptName = dept.Name
		err = s.withQuota(ctx, dept, next.Date, save)
	} else {
		err = save(ctx)
	}
	if err != nil {
		return nil, err
	}

	if n := transitionNotice(deptName, *current, *updated); n != nil {
		s.notify(ctx, updated.UserID, updated.DepartmentID, *n)
	}

	return updated, nil
}

// Delete removes an appointment. When the owner deletes it they are told it
// was cancelled.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id uuid.UUID) error {
	appt, err := s.get(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return err
		}
		return fmt.Errorf("delete appointment: %w", err)
	}

	if appt.UserID == actor.UserID {
		s.notify(ctx, appt.UserID, appt.DepartmentID, cancelledNotice(TitleDeleted, appt.DepartmentName, *appt))
	}
	return nil
}

// Get returns an appointment the actor may see. Other patients' appointments
// look missing.
func (s *Service) Get(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Appointment, error) {
	return s.get(ctx, actor, id)
}

func (s *Service) get(ctx context.Context, actor auth.Identity, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !actor.IsStaff() && appt.UserID != actor.UserID {
		return nil, ErrAppointmentNotFound
	}
	return appt, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]Appointment, error) {
	appts, err := s.repo.ListAppointments(ctx, ListFilter{UserID: &userID})
	if err != nil {
		return nil, fmt.Errorf("list appointments for user: %w", err)
	}
	if appts == nil {
		appts = []Appointment{}
	}
	return appts, nil
}

func (s *Service) ListAll(ctx context.Context) ([]Appointment, error) {
	appts, err := s.repo.ListAppointments(ctx, ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	if appts == nil {
		appts = []Appointment{}
	}
	return appts, nil
}

// Totals counts appointments, optionally only those in status.
func (s *Service) Totals(ctx context.Context, status *Status) (*Totals, error) {
	if status != nil && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	appts, err := s.repo.ListAppointments(ctx, ListFilter{Status: status})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	if appts == nil {
		appts = []Appointment{}
	}
	return &Totals{Count: len(appts), Appointments: appts}, nil
}

// Slots reports how many bookings each department can still take on day.
func (s *Service) Slots(ctx context.Context, day time.Time) ([]SlotAvailability, error) {
	day = DayOf(day)

	depts, err := s.repo.ListDepartmentRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	counts, err := s.repo.CountByDepartmentForDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}

	out := make([]SlotAvailability, 0, len(depts))
	for _, d := range depts {
		booked := counts[d.ID]
		out = append(out, SlotAvailability{
			DepartmentID:   d.ID,
			DepartmentName: d.Name,
			DailyQuota:     d.DailyQuota,
			Booked:         booked,
			Available:      max(0, d.DailyQuota-booked),
		})
	}
	return out, nil
}

// DepartmentTotals groups the bookings dated within the month by department.
func (s *Service) DepartmentTotals(ctx context.Context, year, month int) ([]DepartmentTotal, error) {
	if year < 1 || month < 1 || month > 12 {
		return nil, ErrInvalidPeriod
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	totals, err := s.repo.DepartmentTotals(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("department totals: %w", err)
	}
	if totals == nil {
		totals = []DepartmentTotal{}
	}
	return totals, nil
}

func (s *Service) ListNotifications(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	ns, err := s.repo.ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if ns == nil {
		ns = []Notification{}
	}
	return ns, nil
}

func (s *Service) MarkNotificationRead(ctx context.Context, userID, id uuid.UUID) (*Notification, error) {
	n, err := s.repo.MarkNotificationRead(ctx, id, userID)
	if err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}

// notify persists a notification. The triggering change is already saved,
// so a failure here is only logged.
func (s *Service) notify(ctx context.Context, userID, departmentID uuid.UUID, n notice) {
	deptID := departmentID
	rec := &Notification{
		UserID:       userID,
		Title:        n.Title,
		Message:      n.Message,
		DepartmentID: &deptID,
	}
	if err := s.repo.InsertNotification(ctx, rec); err != nil {
		s.log.WithComponent("appointment").WithError(err).WithFields(map[string]interface{}{
			"user_id": userID,
			"title":   n.Title,
		}).Error("failed to insert notification")
	}
}
