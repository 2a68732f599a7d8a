package patient

import (
	"context"
	"fmt"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/pagination"
)

type Service struct {
	records RecordSource
	catalog MedicineCatalog
	metrics MetricsRecorder
}

// NewService wires a Service. metrics may be nil.
func NewService(records RecordSource, catalog MedicineCatalog, metrics MetricsRecorder) *Service {
	return &Service{records: records, catalog: catalog, metrics: metrics}
}

func (s *Service) GetPatient(ctx context.Context, id string) (*clinical.Patient, error) {
	s.record(ctx, "get")
	patient, err := s.records.GetPatient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (s *Service) ListPrescriptions(ctx context.Context, patientID string) ([]clinical.Prescription, error) {
	s.record(ctx, "list_prescriptions")
	rxs, err := s.records.ListPrescriptions(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	if rxs == nil {
		rxs = []clinical.Prescription{}
	}
	return rxs, nil
}

func (s *Service) SearchMedicines(ctx context.Context, search string, params pagination.Params) (*PaginatedMedicineListResponse, error) {
	s.record(ctx, "search_medicines")
	params.Validate()

	medicines, total, err := s.catalog.SearchMedicines(ctx, search, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search medicines: %w", err)
	}
	if medicines == nil {
		medicines = []clinical.Medicine{}
	}

	return &PaginatedMedicineListResponse{
		Success:    true,
		Medicines:  medicines,
		Pagination: params.CalculateMeta(total),
	}, nil
}

func (s *Service) record(ctx context.Context, operation string) {
	if s.metrics != nil {
		s.metrics.RecordPatientOperation(ctx, operation)
	}
}
