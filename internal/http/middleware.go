package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/api"
	"expensetracker/internal/log"
	"expensetracker/internal/session"
)

const requestIDHeader = "X-Request-ID"

// requestID reuses a well formed incoming X-Request-ID or mints a uuid, and
// attaches it to the response and the request logger.
func (s *Server) requestID(next http.Handler) http.Handler {
	withLogger := log.RequestIDMiddleware(func(r *http.Request) string {
		return r.Header.Get(requestIDHeader)
	})(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		r.Header.Set(requestIDHeader, id)
		withLogger.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := s.detector.ClientIP(r)
		ctx := r.Context()

		if s.detector.Suspicious(r) {
			log.FromContext(ctx).WithComponent(log.ComponentSecurity).WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, ip, "path", r.URL.Path)
		}

		log.LogHTTPStart(ctx, r, ip)
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		log.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), ip)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess session.Session)

// authed reads the bearer token into a session and has the backend vouch for
// it before any handler runs. Missing, expired or forged tokens get 401.
func (s *Server) authed(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.FromBearer(r.Header.Get("Authorization"))
		if err != nil {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if sess.Expired(s.now()) {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, "access token expired")
			return
		}

		userID, err := s.verifyIdentity(r.Context(), sess)
		switch {
		case errors.Is(err, api.ErrUnauthorized), errors.Is(err, errIdentityMismatch):
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(), "Rejected bearer token",
				log.FieldClientIP, s.detector.ClientIP(r), log.FieldError, err)
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, "invalid access token")
			return
		case errors.Is(err, errNoIdentity):
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		case err != nil:
			s.respondError(w, r, log.OpRead, err)
			return
		}
		sess.UserID = userID

		ctx := session.NewContext(r.Context(), sess)
		logger := log.FromContext(ctx).With(log.FieldUserID, sess.UserID)
		next(w, r.WithContext(log.NewContext(ctx, logger)), sess)
	}
}
