package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates every table and index the services need. Statements are
// idempotent so it runs on each process start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,
		createDepartmentsTable,
		createDoctorsTable,
		createDoctorDepartmentsTable,
		createUsersTable,
		createAppointmentsTable,
		createNotificationsTable,
		createFeedbackTable,
		createBlobsTable,
	}
	stmts = append(stmts, indexes...)

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Department references are plain columns: removing a department leaves
// doctors, appointments and feedback pointing at it.

const createDepartmentsTable = `
CREATE TABLE IF NOT EXISTS departments (
	id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name        TEXT NOT NULL,
	description TEXT NOT NULL,
	daily_quota INTEGER NOT NULL DEFAULT 50 CHECK (daily_quota >= 0),
	image       JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createDoctorsTable = `
CREATE TABLE IF NOT EXISTS doctors (
	id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name           TEXT NOT NULL,
	specialization TEXT NOT NULL,
	image          JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createDoctorDepartmentsTable = `
CREATE TABLE IF NOT EXISTS doctor_departments (
	doctor_id     UUID NOT NULL REFERENCES doctors(id) ON DELETE CASCADE,
	department_id UUID NOT NULL,
	PRIMARY KEY (doctor_id, department_id)
)`

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	firstname           TEXT NOT NULL,
	lastname            TEXT NOT NULL,
	email               TEXT NOT NULL UNIQUE,
	password_hash       TEXT NOT NULL,
	contact_number      TEXT NOT NULL DEFAULT '',
	role                TEXT NOT NULL DEFAULT 'patient' CHECK (role IN ('admin', 'staff', 'patient')),
	image               JSONB,
	reset_token_hash    TEXT,
	reset_token_expires TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createAppointmentsTable = `
CREATE TABLE IF NOT EXISTS appointments (
	id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id           UUID NOT NULL,
	department_id     UUID NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	date              DATE NOT NULL,
	time              TEXT NOT NULL DEFAULT '',
	patient_type      TEXT NOT NULL CHECK (patient_type IN ('new', 'old')),
	hospital_no       TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'upcoming' CHECK (status IN ('upcoming', 'completed', 'cancelled')),
	lastname          TEXT NOT NULL,
	firstname         TEXT NOT NULL,
	middlename        TEXT NOT NULL DEFAULT '',
	age               INTEGER NOT NULL,
	gender            TEXT NOT NULL,
	marital_status    TEXT NOT NULL,
	address           TEXT NOT NULL DEFAULT '',
	mobile_number     TEXT NOT NULL DEFAULT '',
	date_of_birth     DATE,
	place_of_birth    TEXT NOT NULL DEFAULT '',
	guardian          TEXT NOT NULL DEFAULT '',
	occupation        TEXT NOT NULL DEFAULT '',
	notification_sent BOOLEAN NOT NULL DEFAULT false,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createNotificationsTable = `
CREATE TABLE IF NOT EXISTS notifications (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id       UUID NOT NULL,
	title         TEXT NOT NULL,
	message       TEXT NOT NULL,
	department_id UUID,
	read          BOOLEAN NOT NULL DEFAULT false,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createFeedbackTable = `
CREATE TABLE IF NOT EXISTS feedback (
	id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id        UUID NOT NULL,
	department_id  UUID NOT NULL,
	appointment_id UUID NOT NULL,
	rating         INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comments       TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (appointment_id, user_id)
)`

const createBlobsTable = `
CREATE TABLE IF NOT EXISTS blobs (
	filename      TEXT PRIMARY KEY,
	original_name TEXT NOT NULL DEFAULT '',
	content_type  TEXT NOT NULL,
	size          BIGINT NOT NULL,
	data          BYTEA NOT NULL,
	uploaded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_appointments_department_date ON appointments (department_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_date_sent ON appointments (date, notification_sent)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_user ON appointments (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_department ON feedback (department_id)`,
	`CREATE INDEX IF NOT EXISTS idx_doctor_departments_department ON doctor_departments (department_id)`,
}
