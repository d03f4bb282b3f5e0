package appointment

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/config"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
	redisclient "github.com/hackgods/hospital-appointment-booking/internal/redis"
)

var errInjected = errors.New("injected failure")

type memRepo struct {
	mu            sync.Mutex
	departments   map[uuid.UUID]DepartmentRef
	appts         map[uuid.UUID]*Appointment
	seq           int
	created       map[uuid.UUID]int
	notifications []Notification

	failNotifyFor map[uuid.UUID]bool
	failClaimFor  map[uuid.UUID]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		departments:   make(map[uuid.UUID]DepartmentRef),
		appts:         make(map[uuid.UUID]*Appointment),
		created:       make(map[uuid.UUID]int),
		failNotifyFor: make(map[uuid.UUID]bool),
		failClaimFor:  make(map[uuid.UUID]bool),
	}
}

func (r *memRepo) addDepartment(name string, quota int) DepartmentRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := DepartmentRef{ID: uuid.New(), Name: name, DailyQuota: quota}
	r.departments[d.ID] = d
	return d
}

func (r *memRepo) withName(a Appointment) Appointment {
	a.DepartmentName = r.departments[a.DepartmentID].Name
	return a
}

func (r *memRepo) notificationsFor(userID uuid.UUID) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.appts)
}

func (r *memRepo) GetDepartmentRef(_ context.Context, id uuid.UUID) (*DepartmentRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.departments[id]
	if !ok {
		return nil, ErrDepartmentNotFound
	}
	return &d, nil
}

func (r *memRepo) ListDepartmentRefs(_ context.Context) ([]DepartmentRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []DepartmentRef
	for _, d := range r.departments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) CountForDepartmentDay(_ context.Context, departmentID uuid.UUID, day time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.appts {
		if a.DepartmentID == departmentID && a.Date.Equal(day) {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) CountByDepartmentForDay(_ context.Context, day time.Time) (map[uuid.UUID]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]int)
	for _, a := range r.appts {
		if a.Date.Equal(day) {
			out[a.DepartmentID]++
		}
	}
	return out, nil
}

func (r *memRepo) DepartmentTotals(_ context.Context, from, to time.Time) ([]DepartmentTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byDept := make(map[uuid.UUID]int)
	for _, a := range r.appts {
		if !a.Date.Before(from) && a.Date.Before(to) {
			byDept[a.DepartmentID]++
		}
	}
	var out []DepartmentTotal
	for id, n := range byDept {
		out = append(out, DepartmentTotal{DepartmentID: id, DepartmentName: r.departments[id].Name, Total: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out, nil
}

func (r *memRepo) CreateAppointment(_ context.Context, appt *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := *appt
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.seq++
	r.created[a.ID] = r.seq
	r.appts[a.ID] = &a
	out := r.withName(a)
	return &out, nil
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := r.withName(*a)
	return &out, nil
}

func (r *memRepo) UpdateAppointment(_ context.Context, appt *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[appt.ID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Status = appt.Status
	a.Date = appt.Date
	a.Time = appt.Time
	a.NotificationSent = appt.NotificationSent
	a.UpdatedAt = time.Now()
	out := r.withName(*a)
	return &out, nil
}

func (r *memRepo) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appts[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(r.appts, id)
	return nil
}

func (r *memRepo) sorted(keep func(*Appointment) bool) []Appointment {
	var out []Appointment
	for _, a := range r.appts {
		if keep(a) {
			out = append(out, r.withName(*a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return r.created[out[i].ID] < r.created[out[j].ID] })
	return out
}

func (r *memRepo) ListAppointments(_ context.Context, filter ListFilter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(a *Appointment) bool {
		if filter.UserID != nil && a.UserID != *filter.UserID {
			return false
		}
		if filter.Status != nil && a.Status != *filter.Status {
			return false
		}
		return true
	}), nil
}

func (r *memRepo) FindUnsentForDay(_ context.Context, day time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(a *Appointment) bool {
		return a.Date.Equal(day) && !a.NotificationSent
	}), nil
}

func (r *memRepo) FindForDay(_ context.Context, day time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(a *Appointment) bool {
		return a.Date.Equal(day)
	}), nil
}

func (r *memRepo) ClaimReminder(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failClaimFor[id] {
		return false, errInjected
	}
	a, ok := r.appts[id]
	if !ok || a.NotificationSent {
		return false, nil
	}
	a.NotificationSent = true
	return true, nil
}

func (r *memRepo) ReleaseReminder(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.appts[id]; ok {
		a.NotificationSent = false
	}
	return nil
}

func (r *memRepo) InsertNotification(_ context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNotifyFor[n.UserID] {
		return errInjected
	}
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *memRepo) ListNotifications(_ context.Context, userID uuid.UUID) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if r.notifications[i].UserID == userID {
			out = append(out, r.notifications[i])
		}
	}
	return out, nil
}

func (r *memRepo) MarkNotificationRead(_ context.Context, id, userID uuid.UUID) (*Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		if r.notifications[i].ID == id && r.notifications[i].UserID == userID {
			r.notifications[i].Read = true
			n := r.notifications[i]
			return &n, nil
		}
	}
	return nil, ErrNotificationNotFound
}

// memLocker serialises callers per key inside one process.
type memLocker struct {
	mu    sync.Mutex
	keys  map[string]*sync.Mutex
	busy  bool
	taken []string
}

func newMemLocker() *memLocker {
	return &memLocker{keys: make(map[string]*sync.Mutex)}
}

func (l *memLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.busy {
		l.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	m, ok := l.keys[key]
	if !ok {
		m = &sync.Mutex{}
		l.keys[key] = m
	}
	l.taken = append(l.taken, key)
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

type memMarker struct {
	mu    sync.Mutex
	marks map[string]bool
	fail  bool
}

func newMemMarker() *memMarker {
	return &memMarker{marks: make(map[string]bool)}
}

func (m *memMarker) MarkOnce(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false, errInjected
	}
	if m.marks[key] {
		return false, nil
	}
	m.marks[key] = true
	return true, nil
}

func (m *memMarker) Unmark(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.marks, key)
	return nil
}

type fixture struct {
	svc    *Service
	repo   *memRepo
	locker *memLocker
	marker *memMarker
}

func newFixture() *fixture {
	repo := newMemRepo()
	locker := newMemLocker()
	marker := newMemMarker()
	cfg := config.Config{ReminderMarkTTL: 48 * time.Hour}
	return &fixture{
		svc:    NewService(repo, locker, marker, cfg, logger.Discard()),
		repo:   repo,
		locker: locker,
		marker: marker,
	}
}
