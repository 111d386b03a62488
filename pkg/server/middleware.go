package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/itsneelabh/agrimarket/pkg/apierror"
	"github.com/itsneelabh/agrimarket/pkg/config"
	"github.com/itsneelabh/agrimarket/pkg/logger"
	"github.com/itsneelabh/agrimarket/pkg/telemetry"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// LoggingMiddleware logs HTTP requests with structured logging.
// In development mode it logs every request; otherwise only non-2xx
// responses and requests slower than a second.
func LoggingMiddleware(log logger.Logger, devMode bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			shouldLog := devMode || wrapped.statusCode >= 400 || duration > time.Second
			if !shouldLog {
				return
			}

			fields := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"remote_addr", r.RemoteAddr,
			}
			if r.URL.RawQuery != "" {
				fields = append(fields, "query", r.URL.RawQuery)
			}
			fields = append(fields, telemetry.LogFields(r.Context())...)

			switch {
			case wrapped.statusCode >= 500:
				log.Error("HTTP request error", fields...)
			case wrapped.statusCode >= 400:
				log.Warn("HTTP request client error", fields...)
			case duration > time.Second:
				log.Warn("HTTP request slow", fields...)
			default:
				log.Info("HTTP request", fields...)
			}
		})
	}
}

// RecoveryMiddleware turns a handler panic into a 500 envelope
func RecoveryMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("Handler panic",
						"panic", fmt.Sprint(rec),
						"path", r.URL.Path,
						"stack", string(debug.Stack()))
					writeAPIError(w, apierror.Internal())
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession rejects requests without a verified session
func RequireSession(v SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := v.Verify(r)
			if err != nil {
				writeAPIError(w, apierror.Unauthorized("sign in to use this feature"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// CORSMiddleware handles preflight requests and adds CORS headers for
// allowed origins. Origins support "*", wildcard subdomains
// ("*.example.com") and wildcard ports ("http://localhost:*").
func CORSMiddleware(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if isOriginAllowed(origin, cfg.AllowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if len(cfg.AllowedMethods) > 0 {
					w.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
				}
				if len(cfg.AllowedHeaders) > 0 {
					w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
				}
				w.Header().Set("Access-Control-Expose-Headers", telemetry.HeaderCorrelationID+", "+telemetry.HeaderRequestID)
				if cfg.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", cfg.MaxAge))
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed matches origin against the allow list. An empty origin
// (same-origin request) is never matched.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}

		if idx := strings.Index(allowed, "*."); idx >= 0 {
			before, after := allowed[:idx], allowed[idx+2:]
			if strings.HasPrefix(origin, before) && strings.HasSuffix(origin, "."+after) {
				middle := strings.TrimSuffix(origin[len(before):], "."+after)
				if middle != "" && !strings.Contains(middle, "/") {
					return true
				}
			}
		}

		if strings.HasSuffix(allowed, ":*") {
			base := strings.TrimSuffix(allowed, ":*")
			if strings.HasPrefix(origin, base+":") {
				return true
			}
		}
	}
	return false
}

// chain applies middleware so that the first one listed runs outermost
func chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
