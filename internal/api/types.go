package api

import (
	"github.com/hackgods/hospital-appointment-booking/internal/appointment"
	"github.com/hackgods/hospital-appointment-booking/internal/user"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SignupRequest struct {
	Firstname     string `json:"firstname" validate:"required"`
	Lastname      string `json:"lastname" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
	ContactNumber string `json:"contact_number" validate:"required"`
}

func (r SignupRequest) input() user.SignupInput {
	return user.SignupInput{
		Firstname:     r.Firstname,
		Lastname:      r.Lastname,
		Email:         r.Email,
		Password:      r.Password,
		ContactNumber: r.ContactNumber,
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

type SetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// AppointmentRequest is the booking form. UserID is honoured only for staff
// booking on behalf of a patient.
type AppointmentRequest struct {
	UserID        string `json:"user_id" validate:"omitempty,uuid"`
	DepartmentID  string `json:"department_id" validate:"required,uuid"`
	Description   string `json:"description"`
	Date          string `json:"date" validate:"required"`
	Time          string `json:"time"`
	PatientType   string `json:"patient_type" validate:"required"`
	HospitalNo    string `json:"hospital_no"`
	Lastname      string `json:"lastname" validate:"required"`
	Firstname     string `json:"firstname" validate:"required"`
	Middlename    string `json:"middlename"`
	Age           int    `json:"age" validate:"required"`
	Gender        string `json:"gender" validate:"required"`
	MaritalStatus string `json:"marital_status" validate:"required"`
	Address       string `json:"address"`
	MobileNumber  string `json:"mobile_number"`
	DateOfBirth   string `json:"date_of_birth"`
	PlaceOfBirth  string `json:"place_of_birth"`
	Guardian      string `json:"guardian"`
	Occupation    string `json:"occupation"`
}

type AppointmentUpdateRequest struct {
	Status *string `json:"status"`
	Date   *string `json:"date"`
	Time   *string `json:"time"`
}

type FeedbackRequest struct {
	DepartmentID  string `json:"department_id" validate:"required,uuid"`
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	Rating        int    `json:"rating" validate:"required"`
	Comments      string `json:"comments" validate:"required"`
}

type FeedbackUpdateRequest struct {
	Rating   *int    `json:"rating"`
	Comments *string `json:"comments"`
}

type PatientDetailResponse struct {
	User         *user.User                `json:"user"`
	Appointments []appointment.Appointment `json:"appointments"`
}

type BroadcastResponse struct {
	Message   string `json:"message"`
	Delivered int    `json:"delivered"`
}
