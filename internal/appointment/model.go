package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s ends the visit.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type PatientType string

const (
	PatientNew PatientType = "new"
	PatientOld PatientType = "old"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type MaritalStatus string

const (
	MaritalSingle    MaritalStatus = "Single"
	MaritalMarried   MaritalStatus = "Married"
	MaritalSeparated MaritalStatus = "Separated"
	MaritalWidow     MaritalStatus = "Widow"
	MaritalWidower   MaritalStatus = "Widower"
)

func (m MaritalStatus) Valid() bool {
	switch m {
	case MaritalSingle, MaritalMarried, MaritalSeparated, MaritalWidow, MaritalWidower:
		return true
	}
	return false
}

type Appointment struct {
	ID               uuid.UUID     `json:"id"`
	UserID           uuid.UUID     `json:"user_id"`
	DepartmentID     uuid.UUID     `json:"department_id"`
	DepartmentName   string        `json:"department_name,omitempty"`
	Description      string        `json:"description"`
	Date             time.Time     `json:"date"`
	Time             string        `json:"time"`
	PatientType      PatientType   `json:"patient_type"`
	HospitalNo       string        `json:"hospital_no,omitempty"`
	Status           Status        `json:"status"`
	Lastname         string        `json:"lastname"`
	Firstname        string        `json:"firstname"`
	Middlename       string        `json:"middlename,omitempty"`
	Age              int           `json:"age"`
	Gender           Gender        `json:"gender"`
	MaritalStatus    MaritalStatus `json:"marital_status"`
	Address          string        `json:"address,omitempty"`
	MobileNumber     string        `json:"mobile_number,omitempty"`
	DateOfBirth      *time.Time    `json:"date_of_birth,omitempty"`
	PlaceOfBirth     string        `json:"place_of_birth,omitempty"`
	Guardian         string        `json:"guardian,omitempty"`
	Occupation       string        `json:"occupation,omitempty"`
	NotificationSent bool          `json:"notification_sent"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

type Notification struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	DepartmentID *uuid.UUID `json:"department_id,omitempty"`
	Read         bool       `json:"read"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DepartmentRef is the part of a department the booking workflow reads.
type DepartmentRef struct {
	ID         uuid.UUID
	Name       string
	DailyQuota int
}

type SlotAvailability struct {
	DepartmentID   uuid.UUID `json:"department_id"`
	DepartmentName string    `json:"department_name"`
	DailyQuota     int       `json:"daily_quota"`
	Booked         int       `json:"booked"`
	Available      int       `json:"available_slots"`
}

type DepartmentTotal struct {
	DepartmentID   uuid.UUID `json:"department_id"`
	DepartmentName string    `json:"department_name"`
	Total          int       `json:"total"`
}

type Totals struct {
	Count        int           `json:"count"`
	Appointments []Appointment `json:"appointments"`
}

// ListFilter narrows ListAppointments. Zero values match everything.
type ListFilter struct {
	UserID *uuid.UUID
	Status *Status
}

// SweepResult summarises one reminder run.
type SweepResult struct {
	Day     string `json:"day"`
	Scanned int    `json:"scanned"`
	Sent    int    `json:"sent"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}
