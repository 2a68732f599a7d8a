package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/auth"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/pagination"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig(server.URL + "/api")
	cfg.Timeout = 2 * time.Second
	client, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestClient_GetPatient_ForwardsToken(t *testing.T) {
	var gotAuth, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"patient":{"patient_uid":"p-1","first_name":"Ada","last_name":"Lovelace","allergies":["Penicillin"]}}}`))
	})

	ctx := auth.ContextWithToken(context.Background(), "abc.def.ghi")
	patient, err := client.GetPatient(ctx, "p-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if gotAuth != "Bearer abc.def.ghi" {
		t.Errorf("Expected bearer token to be forwarded, got %q", gotAuth)
	}
	if gotPath != "/api/patients/p-1" {
		t.Errorf("Expected path /api/patients/p-1, got %q", gotPath)
	}
	if patient.UID != "p-1" || patient.FirstName != "Ada" {
		t.Errorf("Unexpected patient: %+v", patient)
	}
	if len(patient.Allergies) != 1 || patient.Allergies[0] != "Penicillin" {
		t.Errorf("Expected one allergy, got %v", patient.Allergies)
	}
}

func TestClient_GetPatient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"patient_uid":"p-1"}`))
	})

	if _, err := client.GetPatient(context.Background(), "p-1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Expected no Authorization header, got %q", gotAuth)
	}
}

func TestClient_ListPrescriptions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/patients/p-1/prescriptions" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"prescriptions":[
			{"id":"rx-1","diagnosis":"Hypertension","prescribed_date":"2024-01-10","medications":[{"name":"Lisinopril"}]},
			{"diagnosis":"missing id"},
			{"id":"rx-2","diagnosis":"Asthma","medications":[{"name":"Albuterol"},{"dosage":"no name"}]}
		]}`))
	})

	rxs, err := client.ListPrescriptions(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(rxs) != 2 {
		t.Fatalf("Expected 2 prescriptions after skipping the invalid one, got %d", len(rxs))
	}
	if rxs[0].ID != "rx-1" || rxs[1].ID != "rx-2" {
		t.Errorf("Expected source order rx-1, rx-2, got %s, %s", rxs[0].ID, rxs[1].ID)
	}
	if len(rxs[1].Medications) != 1 {
		t.Errorf("Expected nameless medication line to be dropped, got %d lines", len(rxs[1].Medications))
	}
}

func TestClient_StatusMapping(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, func(err error) bool { return errors.Is(err, clinical.ErrNotFound) }},
		{"unauthorized", http.StatusUnauthorized, func(err error) bool { return errors.Is(err, clinical.ErrForbidden) }},
		{"forbidden", http.StatusForbidden, func(err error) bool { return errors.Is(err, clinical.ErrForbidden) }},
		{"server error", http.StatusBadGateway, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.Code == http.StatusBadGateway
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})

			_, err := client.GetPatient(context.Background(), "p-1")
			if err == nil || !tc.check(err) {
				t.Errorf("Unexpected error for status %d: %v", tc.status, err)
			}
		})
	}
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		client.GetPatient(context.Background(), "p-1")
	}

	_, err := client.GetPatient(context.Background(), "p-1")
	if !errors.Is(err, clinical.ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable once the breaker is open, got: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 5 {
		t.Errorf("Expected 5 upstream calls, got %d", n)
	}
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 8; i++ {
		_, err := client.GetPatient(context.Background(), "missing")
		if !errors.Is(err, clinical.ErrNotFound) {
			t.Fatalf("Call %d: expected ErrNotFound, got: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 8 {
		t.Errorf("Expected every call to reach the backend, got %d", n)
	}
}

func TestClient_SearchMedicines(t *testing.T) {
	t.Run("reported total", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("search") != "para" || q.Get("page") != "2" || q.Get("limit") != "10" {
				t.Errorf("Unexpected query %q", r.URL.RawQuery)
			}
			w.Write([]byte(`{"data":{"medicines":[{"id":1,"name":"Paracetamol"}]},"meta":{"total":11}}`))
		})

		meds, total, err := client.SearchMedicines(context.Background(), "para", pagination.Params{Page: 2, Limit: 10})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(meds) != 1 || meds[0].ID != "1" {
			t.Errorf("Unexpected medicines: %+v", meds)
		}
		if total != 11 {
			t.Errorf("Expected total 11, got %d", total)
		}
	})

	t.Run("estimated total", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Has("search") {
				t.Error("Expected no search parameter")
			}
			w.Write([]byte(`[{"id":"a","name":"A"},{"id":"b","name":"B"}]`))
		})

		_, total, err := client.SearchMedicines(context.Background(), "", pagination.Params{Page: 1, Limit: 2})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if total != 3 {
			t.Errorf("Expected a full page to advertise one more record, got total %d", total)
		}
	})
}

func TestNew_InvalidURL(t *testing.T) {
	if _, err := New(DefaultConfig("not a url"), nil, nil); err == nil {
		t.Error("Expected error for relative url, got nil")
	}
}

func TestClient_OversizedBodyIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"rx-1","diagnosis":"Flu"},{"id":"rx-2","diagnosis":"Gout"}]`))
	}))
	t.Cleanup(server.Close)

	cfg := DefaultConfig(server.URL)
	cfg.MaxBodyBytes = 16
	client, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	_, err = client.ListPrescriptions(context.Background(), "p-1")
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Errorf("Expected ErrResponseTooLarge, got: %v", err)
	}
}

func TestClient_BodyAtLimitIsAccepted(t *testing.T) {
	body := `[{"id":"rx-1"}]`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	cfg := DefaultConfig(server.URL)
	cfg.MaxBodyBytes = int64(len(body))
	client, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	rxs, err := client.ListPrescriptions(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("ListPrescriptions failed: %v", err)
	}
	if len(rxs) != 1 {
		t.Errorf("Expected 1 prescription, got %d", len(rxs))
	}
}

func TestClient_CanceledCallsDoNotTripBreaker(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"patient_uid":"p-1","first_name":"Jane","last_name":"Doe"}`))
	})

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 8; i++ {
		_, err := client.GetPatient(canceled, "p-1")
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Call %d: expected context.Canceled, got: %v", i, err)
		}
	}

	if _, err := client.GetPatient(context.Background(), "p-1"); err != nil {
		t.Errorf("Expected the breaker to stay closed after canceled calls, got: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected only the live call to reach the backend, got %d", n)
	}
}
