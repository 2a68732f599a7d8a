package http

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/auth"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/mindmap"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/patient"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/testutil"
)

type stubSource struct{}

func (stubSource) GetPatient(ctx context.Context, patientID string) (*clinical.Patient, error) {
	if patientID == "missing" {
		return nil, clinical.ErrNotFound
	}
	return &clinical.Patient{UID: patientID, FirstName: "Jane", LastName: "Doe", Allergies: []string{"Penicillin"}}, nil
}

func (stubSource) ListPrescriptions(ctx context.Context, patientID string) ([]clinical.Prescription, error) {
	return []clinical.Prescription{{
		ID:             "rx-1",
		Diagnosis:      "Hypertension",
		PrescribedDate: "2024-01-10",
		Medications:    []clinical.MedicationLine{{Name: "Lisinopril", Dosage: "10mg"}},
	}}, nil
}

func (stubSource) SearchMedicines(ctx context.Context, search string, params pagination.Params) ([]clinical.Medicine, int, error) {
	return []clinical.Medicine{{ID: "m-1", Name: "Zestril"}}, 1, nil
}

type mockMetrics struct {
	mu           sync.Mutex
	routes       []string
	authFailures []string
	permChecks   []bool
}

func (m *mockMetrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, method+" "+route)
}

func (m *mockMetrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authFailures = append(m.authFailures, reason)
}

func (m *mockMetrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permChecks = append(m.permChecks, allowed)
}

var testPerms = auth.Permissions{
	"DOCTOR":  {auth.PermMindMapView, auth.PermPatientView, auth.PermMedicineView},
	"NURSE":   {auth.PermMindMapView, auth.PermPatientView, auth.PermMedicineView},
	"PATIENT": {auth.PermMedicineView},
}

func newTestRouter(t *testing.T, metrics Metrics, ready func(context.Context) error) (http.Handler, *rsa.PrivateKey) {
	t.Helper()

	verifier, privateKey := testutil.CreateTestVerifier(t)
	src := stubSource{}

	service := mindmap.NewService(src, nil, nil, nil)
	deps := Deps{
		Verifier: verifier,
		Perms:    testPerms,
		MindMap:  mindmap.NewHandler(mindmap.NewSessions(service), nil),
		Patients: patient.NewHandler(patient.NewService(src, src, nil), nil),
		Ready:    ready,
	}
	if metrics != nil {
		deps.Metrics = metrics
	}
	return SetupRouter(deps), privateKey
}

func serve(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	w := serve(router, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected a generated request id")
	}
}

func TestReady_Unavailable(t *testing.T) {
	router, _ := newTestRouter(t, nil, func(context.Context) error { return errors.New("db down") })

	w := serve(router, "GET", "/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "req-42" {
		t.Errorf("Expected request id 'req-42', got %q", got)
	}
}

func TestMindMapRoute_RequiresToken(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	w := serve(router, "GET", "/patients/p-1/mindmap", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestMindMapRoute_ForbiddenForPatientRole(t *testing.T) {
	router, key := newTestRouter(t, nil, nil)
	token := testutil.GeneratePatientToken(t, key, "org-1", "org_test")

	w := serve(router, "GET", "/patients/p-1/mindmap", token)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}

func TestMindMapRoute_Doctor(t *testing.T) {
	router, key := newTestRouter(t, nil, nil)
	token := testutil.GenerateDoctorToken(t, key, "org-1", "org_test")

	w := serve(router, "GET", "/patients/p-1/mindmap?highlight=condition-hypertension", token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp mindmap.MindMapResponse
	testutil.DecodeJSON(t, w.Result(), &resp)

	if resp.State != mindmap.StateReady {
		t.Errorf("Expected state ready, got %s", resp.State)
	}
	if resp.Graph == nil || len(resp.Graph.Conditions) != 1 || len(resp.Graph.Alerts) != 1 {
		t.Fatalf("Expected one condition and one alert, got %+v", resp.Graph)
	}
	if resp.View == nil || resp.View.Highlighted != "condition-hypertension" {
		t.Errorf("Expected highlighted condition in view, got %+v", resp.View)
	}

	// The session keeps what was loaded.
	w = serve(router, "GET", "/mindmap", token)
	var current mindmap.MindMapResponse
	testutil.DecodeJSON(t, w.Result(), &current)
	if current.Graph == nil || current.Graph.Patient.UID != "p-1" {
		t.Errorf("Expected current mind map for p-1, got %+v", current.Graph)
	}
}

func TestMindMapRoute_NurseHasOwnSession(t *testing.T) {
	router, key := newTestRouter(t, nil, nil)
	doctor := testutil.GenerateDoctorToken(t, key, "org-1", "org_test")
	nurse := testutil.GenerateNurseToken(t, key, "org-1", "org_test")

	serve(router, "GET", "/patients/p-1/mindmap", doctor)

	w := serve(router, "GET", "/mindmap", nurse)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp mindmap.MindMapResponse
	testutil.DecodeJSON(t, w.Result(), &resp)
	if resp.State != mindmap.StateIdle {
		t.Errorf("Expected the nurse's session to be idle, got %s", resp.State)
	}
}

func TestMedicinesRoute_PatientRole(t *testing.T) {
	router, key := newTestRouter(t, nil, nil)
	token := testutil.GeneratePatientToken(t, key, "org-1", "org_test")

	w := serve(router, "GET", "/medicines?search=zest", token)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = serve(router, "GET", "/patients/p-1", token)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 on patient record, got %d", w.Code)
	}
}

func TestPatientRoute_NotFound(t *testing.T) {
	router, key := newTestRouter(t, nil, nil)
	token := testutil.GenerateDoctorToken(t, key, "org-1", "org_test")

	w := serve(router, "GET", "/patients/missing", token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestMetricsMiddleware_RecordsRouteTemplate(t *testing.T) {
	metrics := &mockMetrics{}
	router, key := newTestRouter(t, metrics, nil)
	token := testutil.GenerateDoctorToken(t, key, "org-1", "org_test")

	serve(router, "GET", "/patients/p-1", token)
	serve(router, "GET", "/patients/p-1", "")

	metrics.mu.Lock()
	defer metrics.mu.Unlock()

	if len(metrics.routes) != 2 || metrics.routes[0] != "GET /patients/{id}" {
		t.Errorf("Expected route template to be recorded, got %v", metrics.routes)
	}
	if len(metrics.authFailures) != 1 || metrics.authFailures[0] != "missing_authorization" {
		t.Errorf("Expected one missing_authorization failure, got %v", metrics.authFailures)
	}
	if len(metrics.permChecks) != 1 || !metrics.permChecks[0] {
		t.Errorf("Expected one allowed permission check, got %v", metrics.permChecks)
	}
}

func TestCORS_Preflight(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	req := httptest.NewRequest("OPTIONS", "/patients/p-1/mindmap", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Expected allowed origin, got %q", got)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	handler := CORSMiddleware([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no allowed origin, got %q", got)
	}
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}
