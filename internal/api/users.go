package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/auth"
	"github.com/hackgods/hospital-appointment-booking/internal/user"
)

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	u, err := h.users.SignupPatient(r.Context(), req.input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// login issues a token. Only patients may use the public login; the admin
// login accepts any account.
func (h *Handler) login(roles ...auth.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.fail(w, r, err)
			return
		}

		session, err := h.users.Login(r.Context(), req.Email, req.Password, roles...)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.users.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "If that email is registered, a reset link has been sent."})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.users.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password has been reset."})
}

// getUser lets patients read only their own record.
func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	actor := identity(r)
	if !actor.IsStaff() && actor.UserID != id {
		h.fail(w, r, errForbidden)
		return
	}

	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	f, err := readFields(w, r, h.maxUpload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer f.close()

	var patch user.ProfilePatch
	for key, dst := range map[string]**string{
		"firstname":      &patch.Firstname,
		"lastname":       &patch.Lastname,
		"email":          &patch.Email,
		"contact_number": &patch.ContactNumber,
	} {
		if *dst, err = f.str(key); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	u, err := h.users.UpdateProfile(r.Context(), id, patch, f.image)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) updateOwnProfile(w http.ResponseWriter, r *http.Request) {
	h.updateProfile(w, r, identity(r).UserID)
}

func (h *Handler) deleteOwnProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), identity(r).UserID); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Profile deleted."})
}

func (h *Handler) changeOwnPassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	err := h.users.ChangePassword(r.Context(), identity(r).UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password updated."})
}

// Admin

func (h *Handler) adminCreateUser(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r, h.maxUpload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer f.close()

	var in user.SignupInput
	for key, dst := range map[string]*string{
		"firstname":      &in.Firstname,
		"lastname":       &in.Lastname,
		"email":          &in.Email,
		"password":       &in.Password,
		"contact_number": &in.ContactNumber,
	} {
		if *dst, err = f.value(key); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	role, err := f.value("role")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if role == "" {
		role = string(auth.RoleStaff)
	}

	u, err := h.users.CreateAccount(r.Context(), in, auth.Role(role), f.image)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) adminListUsers(w http.ResponseWriter, r *http.Request) {
	role := auth.Role(r.URL.Query().Get("role"))
	if role == "" {
		role = auth.RolePatient
	}
	users, err := h.users.ListByRole(r.Context(), role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) adminPatientDetail(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	appts, err := h.appointments.ListForUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PatientDetailResponse{User: u, Appointments: appts})
}

func (h *Handler) adminUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.updateProfile(w, r, id)
}

func (h *Handler) adminSetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req SetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.users.SetPassword(r.Context(), id, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password updated."})
}

func (h *Handler) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "User deleted."})
}
