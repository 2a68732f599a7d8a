package mindmap

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/auth"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/testutil"
)

// mockSource is a mock implementation of Source
type mockSource struct {
	getPatientFunc        func(ctx context.Context, patientID string) (*clinical.Patient, error)
	listPrescriptionsFunc func(ctx context.Context, patientID string) ([]clinical.Prescription, error)
}

func (m *mockSource) GetPatient(ctx context.Context, patientID string) (*clinical.Patient, error) {
	if m.getPatientFunc != nil {
		return m.getPatientFunc(ctx, patientID)
	}
	p := samplePatient()
	return &p, nil
}

func (m *mockSource) ListPrescriptions(ctx context.Context, patientID string) ([]clinical.Prescription, error) {
	if m.listPrescriptionsFunc != nil {
		return m.listPrescriptionsFunc(ctx, patientID)
	}
	return sampleHistory(), nil
}

type mockMetrics struct {
	mu       sync.Mutex
	builds   []string
	nodes    []int
	failures []string
}

func (m *mockMetrics) RecordMindMapBuild(ctx context.Context, outcome string, nodes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builds = append(m.builds, outcome)
	m.nodes = append(m.nodes, nodes)
}

func (m *mockMetrics) RecordUpstreamFailure(ctx context.Context, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, operation)
}

func TestServiceGenerate_Success(t *testing.T) {
	publisher := testutil.NewMockPublisher()
	metrics := &mockMetrics{}
	service := NewService(&mockSource{}, publisher, metrics, nil)

	ctx := auth.ContextWithPrincipal(context.Background(), &auth.Principal{UserID: "doctor-1", OrgID: "org-1"})
	g, outcome := service.Generate(ctx, "p-1")

	if outcome != OutcomeBuilt {
		t.Errorf("Expected outcome built, got %s", outcome)
	}
	if len(g.Conditions) != 2 || len(g.Alerts) != 2 {
		t.Errorf("Unexpected graph %+v", g)
	}

	if len(metrics.builds) != 1 || metrics.builds[0] != "built" || metrics.nodes[0] != g.NodeCount() {
		t.Errorf("Expected one built metric, got %v %v", metrics.builds, metrics.nodes)
	}

	publisher.AssertEventCount(t, messaging.EventMindMapGenerated, 1)
	publisher.AssertEventNotPublished(t, messaging.EventMindMapFallback)

	var event messaging.MindMapGeneratedEvent
	publisher.DecodeLastEventByKey(t, messaging.EventMindMapGenerated, &event)
	if event.Data.PatientID != "p-1" || event.Data.RequestedBy != "doctor-1" || event.Data.OrganizationID != "org-1" {
		t.Errorf("Unexpected event data %+v", event.Data)
	}
	if event.Data.Medications != 3 || event.Data.Encounters != 3 {
		t.Errorf("Expected counts from the graph, got %+v", event.Data)
	}
	if event.EventID == "" || event.ServiceName != messaging.ServiceName {
		t.Errorf("Expected a stamped base event, got %+v", event.BaseEvent)
	}
}

func TestServiceGenerate_PatientFailure(t *testing.T) {
	publisher := testutil.NewMockPublisher()
	metrics := &mockMetrics{}
	source := &mockSource{
		getPatientFunc: func(ctx context.Context, patientID string) (*clinical.Patient, error) {
			return nil, clinical.ErrUnavailable
		},
		listPrescriptionsFunc: func(ctx context.Context, patientID string) ([]clinical.Prescription, error) {
			t.Error("prescriptions must not be fetched after the patient failed")
			return nil, nil
		},
	}
	service := NewService(source, publisher, metrics, nil)

	g, outcome := service.Generate(context.Background(), "p-1")

	if outcome != OutcomeFallback {
		t.Errorf("Expected fallback, got %s", outcome)
	}
	if g.NodeCount() != 1 || g.Patient.Label != UnknownPatient {
		t.Errorf("Expected the empty graph, got %+v", g)
	}
	if len(metrics.failures) != 1 || metrics.failures[0] != "get_patient" {
		t.Errorf("Expected get_patient failure, got %v", metrics.failures)
	}
	if len(metrics.builds) != 1 || metrics.builds[0] != "fallback" {
		t.Errorf("Expected fallback metric, got %v", metrics.builds)
	}

	var event messaging.MindMapFallbackEvent
	publisher.DecodeLastEventByKey(t, messaging.EventMindMapFallback, &event)
	if event.Data.PatientID != "p-1" || event.Data.Reason == "" {
		t.Errorf("Unexpected fallback event %+v", event.Data)
	}
	publisher.AssertEventNotPublished(t, messaging.EventMindMapGenerated)
}

func TestServiceGenerate_PrescriptionFailure(t *testing.T) {
	metrics := &mockMetrics{}
	source := &mockSource{
		listPrescriptionsFunc: func(ctx context.Context, patientID string) ([]clinical.Prescription, error) {
			return nil, errors.New("connection reset")
		},
	}
	service := NewService(source, nil, metrics, nil)

	g, outcome := service.Generate(context.Background(), "p-1")

	if outcome != OutcomeFallback {
		t.Errorf("Expected fallback, got %s", outcome)
	}
	// No partial graph: the patient's allergies are not shown either.
	if g.NodeCount() != 1 {
		t.Errorf("Expected the empty graph, got %d nodes", g.NodeCount())
	}
	if len(metrics.failures) != 1 || metrics.failures[0] != "list_prescriptions" {
		t.Errorf("Expected list_prescriptions failure, got %v", metrics.failures)
	}
}

func TestServiceGenerate_NilPatient(t *testing.T) {
	source := &mockSource{
		getPatientFunc: func(ctx context.Context, patientID string) (*clinical.Patient, error) {
			return nil, nil
		},
	}
	service := NewService(source, nil, nil, nil)

	g, outcome := service.Generate(context.Background(), "p-1")
	if outcome != OutcomeFallback || g.NodeCount() != 1 {
		t.Errorf("Expected fallback to the empty graph, got %s with %d nodes", outcome, g.NodeCount())
	}
}

func TestServiceGenerate_PublishFailureIgnored(t *testing.T) {
	publisher := testutil.NewMockPublisher()
	publisher.FailWith(errors.New("channel closed"))
	service := NewService(&mockSource{}, publisher, nil, nil)

	g, outcome := service.Generate(context.Background(), "p-1")
	if outcome != OutcomeBuilt || g.NodeCount() == 1 {
		t.Errorf("Expected a built graph despite the broker, got %s", outcome)
	}
	if len(publisher.GetAllEvents()) != 0 {
		t.Error("Expected no recorded events")
	}
}

func TestServiceGenerate_EmptyHistory(t *testing.T) {
	source := &mockSource{
		getPatientFunc: func(ctx context.Context, patientID string) (*clinical.Patient, error) {
			return &clinical.Patient{UID: patientID, FirstName: "Sam"}, nil
		},
		listPrescriptionsFunc: func(ctx context.Context, patientID string) ([]clinical.Prescription, error) {
			return nil, nil
		},
	}
	service := NewService(source, nil, nil, nil)

	g, outcome := service.Generate(context.Background(), "p-7")
	if outcome != OutcomeBuilt {
		t.Errorf("Expected built, got %s", outcome)
	}
	if g.NodeCount() != 1 || g.Patient.Label != "Sam" || g.Patient.UID != "p-7" {
		t.Errorf("Expected a lone named patient node, got %+v", g.Patient)
	}
}
