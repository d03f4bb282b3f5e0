package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const appointmentColumns = `
	a.id, a.user_id, a.department_id, COALESCE(d.name, ''), a.description, a.date, a.time,
	a.patient_type, a.hospital_no, a.status, a.lastname, a.firstname, a.middlename, a.age,
	a.gender, a.marital_status, a.address, a.mobile_number, a.date_of_birth, a.place_of_birth,
	a.guardian, a.occupation, a.notification_sent, a.created_at, a.updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.DepartmentID,
		&a.DepartmentName,
		&a.Description,
		&a.Date,
		&a.Time,
		&a.PatientType,
		&a.HospitalNo,
		&a.Status,
		&a.Lastname,
		&a.Firstname,
		&a.Middlename,
		&a.Age,
		&a.Gender,
		&a.MaritalStatus,
		&a.Address,
		&a.MobileNumber,
		&a.DateOfBirth,
		&a.PlaceOfBirth,
		&a.Guardian,
		&a.Occupation,
		&a.NotificationSent,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification

	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Message,
		&n.DepartmentID,
		&n.Read,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

// Departments

func (r *PgRepository) GetDepartmentRef(ctx context.Context, id uuid.UUID) (*DepartmentRef, error) {
	var d DepartmentRef
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, daily_quota
		FROM departments
		WHERE id = $1
	`, id).Scan(&d.ID, &d.Name, &d.DailyQuota)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDepartmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *PgRepository) ListDepartmentRefs(ctx context.Context) ([]DepartmentRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, daily_quota
		FROM departments
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DepartmentRef
	for rows.Next() {
		var d DepartmentRef
		if err := rows.Scan(&d.ID, &d.Name, &d.DailyQuota); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Counting

func (r *PgRepository) CountForDepartmentDay(ctx context.Context, departmentID uuid.UUID, day time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE department_id = $1 AND date = $2
	`, departmentID, day).Scan(&n)
	return n, err
}

func (r *PgRepository) CountByDepartmentForDay(ctx context.Context, day time.Time) (map[uuid.UUID]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT department_id, count(*)
		FROM appointments
		WHERE date = $1
		GROUP BY department_id
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (r *PgRepository) DepartmentTotals(ctx context.Context, from, to time.Time) ([]DepartmentTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.department_id, COALESCE(d.name, ''), count(*)
		FROM appointments a
		LEFT JOIN departments d ON d.id = a.department_id
		WHERE a.date >= $1 AND a.date < $2
		GROUP BY a.department_id, d.name
		ORDER BY count(*) DESC, d.name
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DepartmentTotal
	for rows.Next() {
		var t DepartmentTotal
		if err := rows.Scan(&t.DepartmentID, &t.DepartmentName, &t.Total); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Appointments

func (r *PgRepository) CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		WITH a AS (
			INSERT INTO appointments (
				user_id, department_id, description, date, time, patient_type, hospital_no,
				status, lastname, firstname, middlename, age, gender, marital_status, address,
				mobile_number, date_of_birth, place_of_birth, guardian, occupation, notification_sent
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, false)
			RETURNING *
		)
		SELECT `+appointmentColumns+`
		FROM a
		LEFT JOIN departments d ON d.id = a.department_id
	`,
		appt.UserID, appt.DepartmentID, appt.Description, appt.Date, appt.Time, appt.PatientType,
		appt.HospitalNo, appt.Status, appt.Lastname, appt.Firstname, appt.Middlename, appt.Age,
		appt.Gender, appt.MaritalStatus, appt.Address, appt.MobileNumber, appt.DateOfBirth,
		appt.PlaceOfBirth, appt.Guardian, appt.Occupation,
	)
	created, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return created, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN departments d ON d.id = a.department_id
		WHERE a.id = $1
	`, id)
	return scanAppointment(row)
}

// UpdateAppointment writes the mutable fields: status, date, time and the
// reminder flag.
func (r *PgRepository) UpdateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		WITH a AS (
			UPDATE appointments
			SET status = $2, date = $3, time = $4, notification_sent = $5, updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT `+appointmentColumns+`
		FROM a
		LEFT JOIN departments d ON d.id = a.department_id
	`, appt.ID, appt.Status, appt.Date, appt.Time, appt.NotificationSent)
	return scanAppointment(row)
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListAppointments(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN departments d ON d.id = a.department_id
		WHERE ($1::uuid IS NULL OR a.user_id = $1)
		  AND ($2::text IS NULL OR a.status = $2)
		ORDER BY a.date DESC, a.created_at DESC
	`, filter.UserID, status)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// Reminders

func (r *PgRepository) FindUnsentForDay(ctx context.Context, day time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN departments d ON d.id = a.department_id
		WHERE a.date = $1 AND a.notification_sent = false
		ORDER BY a.created_at
	`, day)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindForDay(ctx context.Context, day time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments a
		LEFT JOIN departments d ON d.id = a.department_id
		WHERE a.date = $1
		ORDER BY a.created_at
	`, day)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ClaimReminder(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET notification_sent = true, updated_at = now()
		WHERE id = $1 AND notification_sent = false
	`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) ReleaseReminder(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET notification_sent = false, updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// Notifications

func (r *PgRepository) InsertNotification(ctx context.Context, n *Notification) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO notifications (user_id, title, message, department_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, read, created_at, updated_at
	`, n.UserID, n.Title, n.Message, n.DepartmentID).Scan(&n.ID, &n.Read, &n.CreatedAt, &n.UpdatedAt)
}

func (r *PgRepository) ListNotifications(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, title, message, department_id, read, created_at, updated_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (r *PgRepository) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE notifications
		SET read = true, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, message, department_id, read, created_at, updated_at
	`, id, userID)
	return scanNotification(row)
}
