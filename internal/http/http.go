package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"fininsight/internal/logger"
)

// DefaultUser is used when a request names no user. The file source holds a
// single user's data.
const DefaultUser = "default"

// WriteJSON encodes v as the response body
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse sends {"error": message} and logs it on the request logger
func ErrorResponse(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	log := logger.FromContext(r.Context())
	ev := log.Warn()
	if statusCode >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Int("status", statusCode).Str("path", r.URL.Path).Msg(message)
	WriteJSON(w, statusCode, map[string]string{"error": message})
}

// RequestLogger attaches log to each request context and logs one line per
// request once it completes
func RequestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), reqLog)))

			reqLog.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// ParseNow reads an optional "now" override (RFC3339 or YYYY-MM-DD). Empty
// input returns fallback.
func ParseNow(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid now %q: want RFC3339 or YYYY-MM-DD", s)
	}
	return t, nil
}

// UserID returns the "user" query/form value or DefaultUser
func UserID(r *http.Request) string {
	if u := r.FormValue("user"); u != "" {
		return u
	}
	return DefaultUser
}
