package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
	"github.com/hackgods/hospital-appointment-booking/internal/appointment"
	"github.com/hackgods/hospital-appointment-booking/internal/auth"
)

func (req AppointmentRequest) booking(actor auth.Identity) (appointment.BookingRequest, error) {
	deptID, err := parseUUID("department_id", req.DepartmentID)
	if err != nil {
		return appointment.BookingRequest{}, err
	}
	day, err := appointment.ParseDay(req.Date)
	if err != nil {
		return appointment.BookingRequest{}, err
	}

	var dob *time.Time
	if strings.TrimSpace(req.DateOfBirth) != "" {
		d, err := appointment.ParseDay(req.DateOfBirth)
		if err != nil {
			return appointment.BookingRequest{}, apperr.Validation("invalid_date_of_birth", "date_of_birth must be YYYY-MM-DD or RFC 3339")
		}
		dob = &d
	}

	owner := actor.UserID
	if actor.IsStaff() && req.UserID != "" {
		if owner, err = parseUUID("user_id", req.UserID); err != nil {
			return appointment.BookingRequest{}, err
		}
	}

	return appointment.BookingRequest{
		UserID:        owner,
		DepartmentID:  deptID,
		Description:   req.Description,
		Date:          day,
		Time:          req.Time,
		PatientType:   appointment.PatientType(strings.ToLower(req.PatientType)),
		HospitalNo:    req.HospitalNo,
		Lastname:      req.Lastname,
		Firstname:     req.Firstname,
		Middlename:    req.Middlename,
		Age:           req.Age,
		Gender:        appointment.Gender(strings.ToLower(req.Gender)),
		MaritalStatus: appointment.MaritalStatus(req.MaritalStatus),
		Address:       req.Address,
		MobileNumber:  req.MobileNumber,
		DateOfBirth:   dob,
		PlaceOfBirth:  req.PlaceOfBirth,
		Guardian:      req.Guardian,
		Occupation:    req.Occupation,
		ByStaff:       actor.IsStaff(),
	}, nil
}

func (req AppointmentUpdateRequest) update() (appointment.UpdateRequest, error) {
	var out appointment.UpdateRequest
	if req.Status != nil {
		s := appointment.Status(strings.ToLower(strings.TrimSpace(*req.Status)))
		out.Status = &s
	}
	if req.Date != nil {
		day, err := appointment.ParseDay(*req.Date)
		if err != nil {
			return out, err
		}
		out.Date = &day
	}
	out.Time = req.Time
	return out, nil
}

func (h *Handler) bookAppointment(w http.ResponseWriter, r *http.Request) {
	var req AppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	booking, err := req.booking(identity(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	appt, err := h.appointments.Book(r.Context(), booking)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (h *Handler) listMyAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.appointments.ListForUser(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (h *Handler) listAllAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.appointments.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	appt, err := h.appointments.Get(r.Context(), identity(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) updateAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req AppointmentUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	upd, err := req.update()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	appt, err := h.appointments.Update(r.Context(), identity(r), id, upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.appointments.Delete(r.Context(), identity(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Appointment deleted."})
}

func (h *Handler) availableSlots(w http.ResponseWriter, r *http.Request) {
	day, err := appointment.ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	slots, err := h.appointments.Slots(r.Context(), day)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *Handler) appointmentTotals(w http.ResponseWriter, r *http.Request) {
	var status *appointment.Status
	if raw := chi.URLParam(r, "status"); raw != "" {
		s := appointment.Status(strings.ToLower(raw))
		status = &s
	}
	totals, err := h.appointments.Totals(r.Context(), status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (h *Handler) departmentTotals(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	month, err := queryInt(r, "month")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	totals, err := h.appointments.DepartmentTotals(r.Context(), year, month)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	ns, err := h.appointments.ListNotifications(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	n, err := h.appointments.MarkNotificationRead(r.Context(), identity(r).UserID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

