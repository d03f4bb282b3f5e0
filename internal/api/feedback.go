package api

import (
	"net/http"

	"github.com/hackgods/hospital-appointment-booking/internal/feedback"
)

func (h *Handler) createFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	deptID, err := parseUUID("department_id", req.DepartmentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	apptID, err := parseUUID("appointment_id", req.AppointmentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	fb, err := h.feedback.Create(r.Context(), identity(r).UserID, feedback.Input{
		DepartmentID:  deptID,
		AppointmentID: apptID,
		Rating:        req.Rating,
		Comments:      req.Comments,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

func (h *Handler) listMyFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := h.feedback.ListMine(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) feedbackForAppointment(w http.ResponseWriter, r *http.Request) {
	apptID, err := uuidParam(r, "appointmentId")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	fb, err := h.feedback.GetForAppointment(r.Context(), identity(r).UserID, apptID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

func (h *Handler) updateFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req FeedbackUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	fb, err := h.feedback.Update(r.Context(), identity(r), id, feedback.Patch{
		Rating:   req.Rating,
		Comments: req.Comments,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

func (h *Handler) listAllFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := h.feedback.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) feedbackByDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, err := h.feedback.ListByDepartment(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) deleteFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.feedback.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Feedback deleted."})
}
