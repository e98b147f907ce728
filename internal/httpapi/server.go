// Package httpapi exposes the system operations to the web runtime as a
// small JSON API, plus the event stream and operational endpoints.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sysbridge/internal/system"
	"sysbridge/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	RegisterEvents() error
	HasPermission(module, origin string) int
	HasCapability(capability string) bool
	FontInfo() (types.FontInfo, error)
	DeviceProperties() (types.DeviceProperties, error)
	Region() (*string, error)
	CurrentTimezone() (*string, error)
	Timezones() ([]string, error)
	Ready() bool
}

// NewMux builds the router. stream serves GET /events and may be nil.
func NewMux(svc Service, stream http.Handler) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	// The upgrade needs the raw ResponseWriter, so the stream stays outside
	// the instrumented group.
	if stream != nil {
		r.Get("/events", stream.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(MetricsMiddleware)
		r.Use(requestLogger)
		r.Use(middleware.Compress(5))

		r.Route("/system", func(r chi.Router) {
			r.Post("/events", func(w http.ResponseWriter, r *http.Request) {
				respond(w, r, nil, svc.RegisterEvents())
			})
			r.Get("/permission", func(w http.ResponseWriter, r *http.Request) {
				q := r.URL.Query()
				origin := q.Get("origin")
				if origin == "" {
					origin = r.Header.Get("Origin")
				}
				respond(w, r, svc.HasPermission(q.Get("module"), origin), nil)
			})
			r.Get("/capability", func(w http.ResponseWriter, r *http.Request) {
				respond(w, r, svc.HasCapability(r.URL.Query().Get("capability")), nil)
			})
			r.Get("/font", func(w http.ResponseWriter, r *http.Request) {
				fi, err := svc.FontInfo()
				respond(w, r, fi, err)
			})
			r.Get("/device", func(w http.ResponseWriter, r *http.Request) {
				dp, err := svc.DeviceProperties()
				respond(w, r, dp, err)
			})
			r.Get("/region", func(w http.ResponseWriter, r *http.Request) {
				region, err := svc.Region()
				respond(w, r, region, err)
			})
			r.Get("/timezone", func(w http.ResponseWriter, r *http.Request) {
				tz, err := svc.CurrentTimezone()
				respond(w, r, tz, err)
			})
			r.Get("/timezones", func(w http.ResponseWriter, r *http.Request) {
				zones, err := svc.Timezones()
				respond(w, r, zones, err)
			})
		})

		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})

		r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
			if svc.Ready() {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ready"))
				return
			}
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("events not registered"))
		})
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// respond writes {"data": v} on success and the operation error otherwise.
func respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		operationFailuresTotal.WithLabelValues(routePatternOrPath(r)).Inc()
		msg := err.Error()
		var oe *system.OperationError
		if errors.As(err, &oe) {
			msg = oe.Message()
		}
		writeJSONError(w, http.StatusInternalServerError, msg)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(types.DataResponse{Data: v}); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: system.ErrorID})
}
