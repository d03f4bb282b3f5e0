package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/hospital-appointment-booking/internal/appointment"
	"github.com/hackgods/hospital-appointment-booking/internal/realtime"
)

func (h *Handler) notifySocket(w http.ResponseWriter, r *http.Request) {
	n := h.hub.Broadcast(realtime.Event{
		Type:    realtime.EventAppointmentComplete,
		Message: "Appointment Complete",
	})
	writeJSON(w, http.StatusOK, BroadcastResponse{Message: "Appointment Complete", Delivered: n})
}

// runSweep exposes a reminder sweep so staff can trigger it by hand.
func (h *Handler) runSweep(sweep func(context.Context) (appointment.SweepResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := sweep(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// serveUpload streams a stored file back by name.
func (h *Handler) serveUpload(w http.ResponseWriter, r *http.Request) {
	obj, err := h.blobs.Open(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", obj.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Data)
}
