package feedback

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const feedbackColumns = `
	f.id, f.user_id, f.department_id, COALESCE(d.name, ''), f.appointment_id,
	f.rating, f.comments, f.created_at, f.updated_at`

const selectFeedback = `
	SELECT ` + feedbackColumns + `
	FROM feedback f
	LEFT JOIN departments d ON d.id = f.department_id`

func scanFeedback(row pgx.Row) (*Feedback, error) {
	var f Feedback

	err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.DepartmentID,
		&f.DepartmentName,
		&f.AppointmentID,
		&f.Rating,
		&f.Comments,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFeedbackNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *PgRepository) list(ctx context.Context, query string, args ...any) ([]Feedback, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *PgRepository) DepartmentExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM departments WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *PgRepository) Exists(ctx context.Context, appointmentID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM feedback WHERE appointment_id = $1 AND user_id = $2)
	`, appointmentID, userID).Scan(&ok)
	return ok, err
}

// Create relies on the (appointment_id, user_id) constraint when two
// submissions race past the service's existence check.
func (r *PgRepository) Create(ctx context.Context, f *Feedback) (*Feedback, error) {
	row := r.pool.QueryRow(ctx, `
		WITH f AS (
			INSERT INTO feedback (user_id, department_id, appointment_id, rating, comments)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *
		)
		SELECT `+feedbackColumns+`
		FROM f
		LEFT JOIN departments d ON d.id = f.department_id
	`, f.UserID, f.DepartmentID, f.AppointmentID, f.Rating, f.Comments)

	created, err := scanFeedback(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadySubmitted
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Feedback, error) {
	return scanFeedback(r.pool.QueryRow(ctx, selectFeedback+` WHERE f.id = $1`, id))
}

func (r *PgRepository) GetForAppointment(ctx context.Context, appointmentID, userID uuid.UUID) (*Feedback, error) {
	return scanFeedback(r.pool.QueryRow(ctx,
		selectFeedback+` WHERE f.appointment_id = $1 AND f.user_id = $2`, appointmentID, userID))
}

func (r *PgRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Feedback, error) {
	return r.list(ctx, selectFeedback+` WHERE f.user_id = $1 ORDER BY f.created_at DESC`, userID)
}

func (r *PgRepository) ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]Feedback, error) {
	return r.list(ctx, selectFeedback+` WHERE f.department_id = $1 ORDER BY f.created_at DESC`, departmentID)
}

func (r *PgRepository) ListAll(ctx context.Context) ([]Feedback, error) {
	return r.list(ctx, selectFeedback+` ORDER BY f.created_at DESC`)
}

func (r *PgRepository) Update(ctx context.Context, f *Feedback) (*Feedback, error) {
	row := r.pool.QueryRow(ctx, `
		WITH f AS (
			UPDATE feedback
			SET rating = $2, comments = $3, updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT `+feedbackColumns+`
		FROM f
		LEFT JOIN departments d ON d.id = f.department_id
	`, f.ID, f.Rating, f.Comments)
	return scanFeedback(row)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFeedbackNotFound
	}
	return nil
}
