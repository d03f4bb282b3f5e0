package api

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/hackgods/hospital-appointment-booking/internal/apperr"
	"github.com/hackgods/hospital-appointment-booking/internal/auth"
	"github.com/hackgods/hospital-appointment-booking/internal/logger"
)

var errForbidden = apperr.Forbidden("forbidden", "you do not have access to this resource")

// RequestID tags each request with an id, reusing X-Request-ID when sent.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := logger.ContextWithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging writes one line per request once the handler returns.
func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			log.HTTPRequest(wrapped.ctx(r), r.Method, r.URL.Path, wrapped.statusCode, time.Since(start).Milliseconds())
		})
	}
}

// CORS allows browser clients from the configured origins. A "*" entry
// allows any origin. Bearer tokens travel in a header, so credentials stay off.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           int((12 * time.Hour).Seconds()),
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's identity on the context.
func Authenticate(issuer *auth.Issuer, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := issuer.Verify(bearerToken(r))
			if err != nil {
				writeServiceError(w, r, log, err)
				return
			}

			ctx := auth.WithIdentity(r.Context(), id)
			ctx = logger.ContextWithUserID(ctx, id.UserID.String())
			if lw, ok := w.(*responseWriter); ok {
				lw.userID = id.UserID.String()
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles must run after Authenticate.
func RequireRoles(log *logger.Logger, roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFrom(r.Context())
			if !ok {
				writeServiceError(w, r, log, auth.ErrMissingToken)
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeServiceError(w, r, log, errForbidden)
		})
	}
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	userID      string
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

// ctx adds the user recorded by Authenticate, whose context change is not
// visible to outer middleware.
func (rw *responseWriter) ctx(r *http.Request) context.Context {
	if rw.userID == "" {
		return r.Context()
	}
	return logger.ContextWithUserID(r.Context(), rw.userID)
}
