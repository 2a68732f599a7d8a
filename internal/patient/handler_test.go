package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/pagination"
)

// mockService implements ServiceInterface for testing
type mockService struct {
	getPatientFunc        func(ctx context.Context, id string) (*clinical.Patient, error)
	listPrescriptionsFunc func(ctx context.Context, patientID string) ([]clinical.Prescription, error)
	searchMedicinesFunc   func(ctx context.Context, search string, params pagination.Params) (*PaginatedMedicineListResponse, error)
}

func (m *mockService) GetPatient(ctx context.Context, id string) (*clinical.Patient, error) {
	if m.getPatientFunc != nil {
		return m.getPatientFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) ListPrescriptions(ctx context.Context, patientID string) ([]clinical.Prescription, error) {
	if m.listPrescriptionsFunc != nil {
		return m.listPrescriptionsFunc(ctx, patientID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) SearchMedicines(ctx context.Context, search string, params pagination.Params) (*PaginatedMedicineListResponse, error) {
	if m.searchMedicinesFunc != nil {
		return m.searchMedicinesFunc(ctx, search, params)
	}
	return nil, errors.New("not implemented")
}

func TestHandlerGetPatient_Success(t *testing.T) {
	mockSvc := &mockService{
		getPatientFunc: func(ctx context.Context, id string) (*clinical.Patient, error) {
			return &clinical.Patient{UID: id, FirstName: "Ada", Allergies: []string{}}, nil
		},
	}
	handler := NewHandler(mockSvc, nil)

	req := httptest.NewRequest(http.MethodGet, "/patients/p-1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "p-1"})
	rec := httptest.NewRecorder()

	handler.GetPatient(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var resp PatientSuccessResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success || resp.Patient == nil || resp.Patient.UID != "p-1" {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestHandlerGetPatient_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"not found", fmt.Errorf("failed to get patient: %w", clinical.ErrNotFound), http.StatusNotFound, "not_found"},
		{"forbidden", clinical.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"missing org", ErrMissingOrganization, http.StatusBadRequest, "missing_org_info"},
		{"unknown schema", ErrSchemaNotFound, http.StatusNotFound, "org_not_found"},
		{"unavailable", clinical.ErrUnavailable, http.StatusServiceUnavailable, "upstream_unavailable"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "fetch_failed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockSvc := &mockService{
				getPatientFunc: func(ctx context.Context, id string) (*clinical.Patient, error) {
					return nil, tc.err
				},
			}
			handler := NewHandler(mockSvc, nil)

			req := httptest.NewRequest(http.MethodGet, "/patients/p-1", nil)
			req = mux.SetURLVars(req, map[string]string{"id": "p-1"})
			rec := httptest.NewRecorder()

			handler.GetPatient(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			var body map[string]interface{}
			json.NewDecoder(rec.Body).Decode(&body)
			if body["error"] != tc.wantError {
				t.Errorf("Expected error '%s', got '%v'", tc.wantError, body["error"])
			}
		})
	}
}

func TestHandlerGetPatient_MissingID(t *testing.T) {
	handler := NewHandler(&mockService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/patients/", nil)
	rec := httptest.NewRecorder()

	handler.GetPatient(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestHandlerListPrescriptions_Success(t *testing.T) {
	mockSvc := &mockService{
		listPrescriptionsFunc: func(ctx context.Context, patientID string) ([]clinical.Prescription, error) {
			return []clinical.Prescription{
				{ID: "rx-1", Diagnosis: "Hypertension"},
				{ID: "rx-2", Diagnosis: "Asthma"},
			}, nil
		},
	}
	handler := NewHandler(mockSvc, nil)

	req := httptest.NewRequest(http.MethodGet, "/patients/p-1/prescriptions", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "p-1"})
	rec := httptest.NewRecorder()

	handler.ListPrescriptions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var resp PrescriptionListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Prescriptions) != 2 {
		t.Errorf("Expected 2 prescriptions, got %+v", resp)
	}
}

func TestHandlerListMedicines_ParsesQuery(t *testing.T) {
	var gotSearch string
	var gotParams pagination.Params
	mockSvc := &mockService{
		searchMedicinesFunc: func(ctx context.Context, search string, params pagination.Params) (*PaginatedMedicineListResponse, error) {
			gotSearch = search
			gotParams = params
			return &PaginatedMedicineListResponse{
				Success:    true,
				Medicines:  []clinical.Medicine{{ID: "m-1", Name: "Ibuprofen"}},
				Pagination: params.CalculateMeta(1),
			}, nil
		},
	}
	handler := NewHandler(mockSvc, nil)

	req := httptest.NewRequest(http.MethodGet, "/medicines?search=%20ibu%20&page=3&limit=5", nil)
	rec := httptest.NewRecorder()

	handler.ListMedicines(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if gotSearch != "ibu" {
		t.Errorf("Expected trimmed search 'ibu', got '%s'", gotSearch)
	}
	if gotParams.Page != 3 || gotParams.Limit != 5 {
		t.Errorf("Expected page 3 limit 5, got %+v", gotParams)
	}

	var resp PaginatedMedicineListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Medicines) != 1 || resp.Medicines[0].Name != "Ibuprofen" {
		t.Errorf("Unexpected medicines: %+v", resp.Medicines)
	}
}
