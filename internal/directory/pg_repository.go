package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Description,
		&d.DailyQuota,
		&d.Image,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDepartmentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func collectDepartments(rows pgx.Rows) ([]Department, error) {
	defer rows.Close()

	var out []Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Specialization,
		&d.Image,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	d.Departments = []DepartmentSummary{}
	return &d, nil
}

// likePattern turns free text into a case-insensitive substring pattern.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// Departments

func (r *PgRepository) CreateDepartment(ctx context.Context, d *Department) (*Department, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO departments (name, description, daily_quota, image)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, daily_quota, image, created_at, updated_at
	`, d.Name, d.Description, d.DailyQuota, d.Image)
	return scanDepartment(row)
}

func (r *PgRepository) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, daily_quota, image, created_at, updated_at
		FROM departments
		WHERE id = $1
	`, id)
	return scanDepartment(row)
}

func (r *PgRepository) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, daily_quota, image, created_at, updated_at
		FROM departments
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	return collectDepartments(rows)
}

func (r *PgRepository) UpdateDepartment(ctx context.Context, d *Department) (*Department, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE departments
		SET name = $2, description = $3, daily_quota = $4, image = $5, updated_at = now()
		WHERE id = $1
		RETURNING id, name, description, daily_quota, image, created_at, updated_at
	`, d.ID, d.Name, d.Description, d.DailyQuota, d.Image)
	return scanDepartment(row)
}

func (r *PgRepository) DeleteDepartment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDepartmentNotFound
	}
	return nil
}

func (r *PgRepository) CountDepartments(ctx context.Context, ids []uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM departments WHERE id = ANY($1)`, ids).Scan(&n)
	return n, err
}

func (r *PgRepository) SearchDepartments(ctx context.Context, query string) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, daily_quota, image, created_at, updated_at
		FROM departments
		WHERE name ILIKE $1
		ORDER BY name
	`, likePattern(query))
	if err != nil {
		return nil, err
	}
	return collectDepartments(rows)
}

// Doctors

func (r *PgRepository) CreateDoctor(ctx context.Context, d *Doctor) (*Doctor, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	created, err := scanDoctor(tx.QueryRow(ctx, `
		INSERT INTO doctors (name, specialization, image)
		VALUES ($1, $2, $3)
		RETURNING id, name, specialization, image, created_at, updated_at
	`, d.Name, d.Specialization, d.Image))
	if err != nil {
		return nil, err
	}

	if err := replaceDoctorDepartments(ctx, tx, created.ID, d.departmentIDs()); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return r.GetDoctor(ctx, created.ID)
}

func replaceDoctorDepartments(ctx context.Context, tx pgx.Tx, doctorID uuid.UUID, deptIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM doctor_departments WHERE doctor_id = $1`, doctorID); err != nil {
		return fmt.Errorf("clear doctor departments: %w", err)
	}
	for _, deptID := range deptIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO doctor_departments (doctor_id, department_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, doctorID, deptID)
		if err != nil {
			return fmt.Errorf("link doctor department: %w", err)
		}
	}
	return nil
}

// attachDepartments fills Departments for every doctor in one query.
func (r *PgRepository) attachDepartments(ctx context.Context, doctors []Doctor) error {
	if len(doctors) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(doctors))
	index := make(map[uuid.UUID]int, len(doctors))
	for i, d := range doctors {
		ids[i] = d.ID
		index[d.ID] = i
	}

	rows, err := r.pool.Query(ctx, `
		SELECT dd.doctor_id, dd.department_id, COALESCE(d.name, '')
		FROM doctor_departments dd
		LEFT JOIN departments d ON d.id = dd.department_id
		WHERE dd.doctor_id = ANY($1)
		ORDER BY d.name
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var doctorID uuid.UUID
		var dep DepartmentSummary
		if err := rows.Scan(&doctorID, &dep.ID, &dep.Name); err != nil {
			return err
		}
		i := index[doctorID]
		doctors[i].Departments = append(doctors[i].Departments, dep)
	}
	return rows.Err()
}

func collectDoctors(rows pgx.Rows) ([]Doctor, error) {
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *PgRepository) queryDoctors(ctx context.Context, sql string, args ...any) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	out, err := collectDoctors(rows)
	if err != nil {
		return nil, err
	}

	if err := r.attachDepartments(ctx, out); err != nil {
		return nil, fmt.Errorf("load doctor departments: %w", err)
	}
	return out, nil
}

func (r *PgRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	doctors, err := r.queryDoctors(ctx, `
		SELECT id, name, specialization, image, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	if len(doctors) == 0 {
		return nil, ErrDoctorNotFound
	}
	return &doctors[0], nil
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return r.queryDoctors(ctx, `
		SELECT id, name, specialization, image, created_at, updated_at
		FROM doctors
		ORDER BY name
	`)
}

func (r *PgRepository) ListDoctorsByDepartment(ctx context.Context, departmentID uuid.UUID) ([]Doctor, error) {
	return r.queryDoctors(ctx, `
		SELECT d.id, d.name, d.specialization, d.image, d.created_at, d.updated_at
		FROM doctors d
		JOIN doctor_departments dd ON dd.doctor_id = d.id
		WHERE dd.department_id = $1
		ORDER BY d.name
	`, departmentID)
}

func (r *PgRepository) UpdateDoctor(ctx context.Context, d *Doctor) (*Doctor, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE doctors
		SET name = $2, specialization = $3, image = $4, updated_at = now()
		WHERE id = $1
	`, d.ID, d.Name, d.Specialization, d.Image)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrDoctorNotFound
	}

	if err := replaceDoctorDepartments(ctx, tx, d.ID, d.departmentIDs()); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return r.GetDoctor(ctx, d.ID)
}

func (r *PgRepository) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDoctorNotFound
	}
	return nil
}

func (r *PgRepository) SearchDoctors(ctx context.Context, query string) ([]Doctor, error) {
	return r.queryDoctors(ctx, `
		SELECT id, name, specialization, image, created_at, updated_at
		FROM doctors
		WHERE name ILIKE $1 OR specialization ILIKE $1
		ORDER BY name
	`, likePattern(query))
}
