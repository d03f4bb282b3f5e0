package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hackgods/hospital-appointment-booking/internal/appointment"
	"github.com/hackgods/hospital-appointment-booking/internal/auth"
	"github.com/hackgods/hospital-appointment-booking/internal/blob"
	"github.com/hackgods/hospital-appointment-booking/internal/directory"
	"github.com/hackgods/hospital-appointment-booking/internal/feedback"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
	"github.com/hackgods/hospital-appointment-booking/internal/realtime"
	"github.com/hackgods/hospital-appointment-booking/internal/user"
)

type RouterConfig struct {
	Users        *user.Service
	Directory    *directory.Service
	Appointments *appointment.Service
	Feedback     *feedback.Service
	Blobs        blob.Store
	Hub          *realtime.Hub
	Issuer       *auth.Issuer
	Log          *logger.Logger

	PostgresCheck  Check
	RedisCheck     Check
	AllowedOrigins []string
	UploadMaxBytes int64
	Env            string
	Version        string
}

// Handler holds the services every route delegates to.
type Handler struct {
	users        *user.Service
	directory    *directory.Service
	appointments *appointment.Service
	feedback     *feedback.Service
	blobs        blob.Store
	hub          *realtime.Hub
	log          *logger.Logger
	maxUpload    int64
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeServiceError(w, r, h.log, err)
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := &Handler{
		users:        cfg.Users,
		directory:    cfg.Directory,
		appointments: cfg.Appointments,
		feedback:     cfg.Feedback,
		blobs:        cfg.Blobs,
		hub:          cfg.Hub,
		log:          cfg.Log,
		maxUpload:    cfg.UploadMaxBytes,
	}

	authn := Authenticate(cfg.Issuer, cfg.Log)
	staff := RequireRoles(cfg.Log, auth.RoleAdmin, auth.RoleStaff)
	adminOnly := RequireRoles(cfg.Log, auth.RoleAdmin)

	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logging(cfg.Log))
	r.Use(middleware.Recoverer)
	r.Use(CORS(cfg.AllowedOrigins))

	health := NewHealthHandler(cfg.PostgresCheck, cfg.RedisCheck, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Get("/uploads/{filename}", h.serveUpload)
	r.Handle("/ws", cfg.Hub)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", h.search)

		r.Route("/users", func(r chi.Router) {
			r.Post("/signup", h.signup)
			r.Post("/login", h.login(auth.RolePatient))
			r.Post("/forgot-password", h.forgotPassword)
			r.Post("/reset-password", h.resetPassword)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Put("/profile", h.updateOwnProfile)
				r.Delete("/profile", h.deleteOwnProfile)
				r.Put("/password", h.changeOwnPassword)
				r.Get("/{id}", h.getUser)
			})
		})

		r.Route("/departments", func(r chi.Router) {
			r.Get("/", h.listDepartments)
			r.Get("/{id}", h.getDepartment)
		})

		r.Route("/doctors", func(r chi.Router) {
			r.Get("/", h.listDoctors)
			r.Get("/by-department/{id}", h.listDoctorsByDepartment)
			r.Get("/{id}", h.getDoctor)
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/slots", h.availableSlots)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Post("/", h.bookAppointment)
				r.Get("/", h.listMyAppointments)
				r.Get("/notifications", h.listNotifications)
				r.Put("/notifications/{id}", h.markNotificationRead)
				r.Get("/{id}", h.getAppointment)
				r.Put("/{id}", h.updateAppointment)
				r.Delete("/{id}", h.deleteAppointment)
			})
		})

		r.Route("/feedbacks", func(r chi.Router) {
			r.Use(authn)
			r.Post("/", h.createFeedback)
			r.Get("/me", h.listMyFeedback)
			r.Get("/appointment/{appointmentId}", h.feedbackForAppointment)
			r.Put("/{id}", h.updateFeedback)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/users/login", h.login())

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Use(staff)

				r.Route("/users", func(r chi.Router) {
					r.With(adminOnly).Post("/signup", h.adminCreateUser)
					r.Get("/list", h.adminListUsers)
					r.Get("/patients/{id}", h.adminPatientDetail)
					r.Put("/profile/{id}", h.adminUpdateProfile)
					r.Put("/change-password/{id}", h.adminSetPassword)
					r.Get("/{id}", h.getUser)
					r.Delete("/{id}", h.adminDeleteUser)
				})

				r.Route("/departments", func(r chi.Router) {
					r.Post("/", h.createDepartment)
					r.Get("/", h.listDepartments)
					r.Get("/{id}", h.getDepartment)
					r.Put("/{id}", h.updateDepartment)
					r.Delete("/{id}", h.deleteDepartment)
				})

				r.Route("/doctors", func(r chi.Router) {
					r.Post("/", h.createDoctor)
					r.Get("/", h.listDoctors)
					r.Get("/by-department/{id}", h.listDoctorsByDepartment)
					r.Get("/{id}", h.getDoctor)
					r.Put("/{id}", h.updateDoctor)
					r.Delete("/{id}", h.deleteDoctor)
				})

				r.Route("/appointments", func(r chi.Router) {
					r.Post("/", h.bookAppointment)
					r.Get("/list", h.listAllAppointments)
					r.Get("/list/{id}", h.getAppointment)
					r.Get("/total", h.appointmentTotals)
					r.Get("/total/{status}", h.appointmentTotals)
					r.Get("/department-totals", h.departmentTotals)
					r.Put("/{id}", h.updateAppointment)
					r.Delete("/{id}", h.deleteAppointment)
				})

				r.Route("/feedbacks", func(r chi.Router) {
					r.Get("/", h.listAllFeedback)
					r.Get("/by-department/{id}", h.feedbackByDepartment)
					r.Delete("/{id}", h.deleteFeedback)
				})

				r.Post("/notify/socket", h.notifySocket)
				r.Post("/reminders/today", h.runSweep(cfg.Appointments.SendTodayReminders))
				r.Post("/reminders/tomorrow", h.runSweep(cfg.Appointments.SendTomorrowReminders))
			})
		})
	})

	return r
}
