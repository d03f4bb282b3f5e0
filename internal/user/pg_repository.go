package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/hospital-appointment-booking/internal/auth"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const userColumns = `id, firstname, lastname, email, password_hash, contact_number, role, image, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User

	err := row.Scan(
		&u.ID,
		&u.Firstname,
		&u.Lastname,
		&u.Email,
		&u.PasswordHash,
		&u.ContactNumber,
		&u.Role,
		&u.Image,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}

func (r *PgRepository) Create(ctx context.Context, u *User) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (firstname, lastname, email, password_hash, contact_number, role, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		u.Firstname, u.Lastname, u.Email, u.PasswordHash, u.ContactNumber, u.Role, u.Image)
	created, err := scanUser(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *PgRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *PgRepository) ListByRole(ctx context.Context, role auth.Role) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE role = $1
		ORDER BY lastname, firstname
	`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *PgRepository) UpdateProfile(ctx context.Context, u *User) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET firstname = $2, lastname = $3, email = $4, contact_number = $5, image = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		u.ID, u.Firstname, u.Lastname, u.Email, u.ContactNumber, u.Image)
	updated, err := scanUser(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return updated, nil
}

func (r *PgRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PgRepository) SetResetToken(ctx context.Context, id uuid.UUID, hash string, expires time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET reset_token_hash = $2, reset_token_expires = $3, updated_at = now()
		WHERE id = $1
	`, id, hash, expires)
	if err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByResetToken(ctx context.Context, hash string, now time.Time) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE reset_token_hash = $1 AND reset_token_expires > $2
	`, hash, now))
}

func (r *PgRepository) ConsumeResetToken(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, reset_token_hash = NULL, reset_token_expires = NULL, updated_at = now()
		WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
