package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/directory"
)

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	ds, err := h.directory.ListDepartments(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *Handler) getDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.directory.GetDepartment(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) createDepartment(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r, h.maxUpload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer f.close()

	var in directory.DepartmentInput
	if in.Name, err = f.value("name"); err != nil {
		h.fail(w, r, err)
		return
	}
	if in.Description, err = f.value("description"); err != nil {
		h.fail(w, r, err)
		return
	}
	if in.DailyQuota, err = f.integer("daily_quota"); err != nil {
		h.fail(w, r, err)
		return
	}

	d, err := h.directory.CreateDepartment(r.Context(), in, f.image)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) updateDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f, err := readFields(w, r, h.maxUpload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer f.close()

	var patch directory.DepartmentPatch
	if patch.Name, err = f.str("name"); err != nil {
		h.fail(w, r, err)
		return
	}
	if patch.Description, err = f.str("description"); err != nil {
		h.fail(w, r, err)
		return
	}
	if patch.DailyQuota, err = f.integer("daily_quota"); err != nil {
		h.fail(w, r, err)
		return
	}

	d, err := h.directory.UpdateDepartment(r.Context(), id, patch, f.image)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.directory.DeleteDepartment(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Department deleted."})
}

// Doctors

func (h *Handler) listDoctors(w http.ResponseWriter, r *http.Request) {
	ds, err := h.directory.ListDoctors(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *Handler) listDoctorsByDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ds, err := h.directory.ListDoctorsByDepartment(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *Handler) getDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.directory.GetDoctor(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) createDoctor(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r, h.maxUpload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer f.close()

	var in directory.DoctorInput
	if in.Name, err = f.value("name"); err != nil {
		h.fail(w, r, err)
		return
	}
	if in.Specialization, err = f.value("specialization"); err != nil {
		h.fail(w, r, err)
		return
	}
	if in.DepartmentIDs, _, err = f.uuids("departments"); err != nil {
		h.fail(w, r, err)
		return
	}

	d, err := h.directory.CreateDoctor(r.Context(), in, f.image)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) updateDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f, err := readFields(w, r, h.maxUpload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer f.close()

	var patch directory.DoctorPatch
	if patch.Name, err = f.str("name"); err != nil {
		h.fail(w, r, err)
		return
	}
	if patch.Specialization, err = f.str("specialization"); err != nil {
		h.fail(w, r, err)
		return
	}
	ids, present, err := f.uuids("departments")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if present {
		// an explicit empty list is rejected by the service
		patch.DepartmentIDs = append([]uuid.UUID{}, ids...)
	}

	d, err := h.directory.UpdateDoctor(r.Context(), id, patch, f.image)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) deleteDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.directory.DeleteDoctor(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Doctor deleted."})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	res, err := h.directory.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
