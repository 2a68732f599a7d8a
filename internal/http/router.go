package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/auth"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/mindmap"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/patient"
)

const serviceName = "mindmap-service"

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Metrics is what the router records. *telemetry.Metrics implements it.
type Metrics interface {
	auth.MetricsRecorder
	auth.PermissionMetricsRecorder
	RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64)
}

// Deps holds everything the router mounts. Metrics, Ready and Logger are optional.
type Deps struct {
	Verifier       *auth.Verifier
	Perms          auth.Permissions
	MindMap        *mindmap.Handler
	Patients       *patient.Handler
	Metrics        Metrics
	Ready          func(ctx context.Context) error
	AllowedOrigins []string
	Logger         *zap.Logger
}

// SetupRouter initializes all routes for the application
func SetupRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := mux.NewRouter()
	r.Use(otelmux.Middleware(serviceName))
	r.Use(requestIDMiddleware)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// Public health endpoints
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
	}).Methods("GET")

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(r.Context()); err != nil {
				logger.Warn("readiness check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "service": serviceName})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": serviceName})
	}).Methods("GET")

	var authMetrics auth.MetricsRecorder
	var permMetrics auth.PermissionMetricsRecorder
	if deps.Metrics != nil {
		authMetrics = deps.Metrics
		permMetrics = deps.Metrics
	}
	authn := auth.MiddlewareWithMetrics(deps.Verifier, authMetrics, logger)
	guard := func(permission string, h http.HandlerFunc) http.Handler {
		return authn(auth.RequirePermissionWithMetrics(permission, deps.Perms, permMetrics)(h))
	}

	// Mind map routes
	r.Handle("/patients/{id}/mindmap", guard(auth.PermMindMapView, deps.MindMap.GetPatientMindMap)).Methods("GET")
	r.Handle("/mindmap", guard(auth.PermMindMapView, deps.MindMap.GetCurrentMindMap)).Methods("GET")
	r.Handle("/mindmap/highlight", guard(auth.PermMindMapView, deps.MindMap.SetHighlight)).Methods("POST")
	r.Handle("/mindmap/highlight", guard(auth.PermMindMapView, deps.MindMap.ClearHighlight)).Methods("DELETE")

	// Patient record routes
	r.Handle("/patients/{id}", guard(auth.PermPatientView, deps.Patients.GetPatient)).Methods("GET")
	r.Handle("/patients/{id}/prescriptions", guard(auth.PermPatientView, deps.Patients.ListPrescriptions)).Methods("GET")
	r.Handle("/medicines", guard(auth.PermMedicineView, deps.Patients.ListMedicines)).Methods("GET")

	return CORSMiddleware(deps.AllowedOrigins)(r)
}

// requestIDMiddleware keeps an incoming X-Request-ID or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records every request under its route template so that
// patient ids do not explode label cardinality.
func metricsMiddleware(metrics Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			metrics.RecordHTTPRequest(r.Context(), r.Method, route, rec.status, float64(time.Since(start).Milliseconds()))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
