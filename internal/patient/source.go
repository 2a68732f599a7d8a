package patient

import (
	"context"
	"fmt"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/normalize"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/pagination"
)

// DBSource serves clinical records straight from PostgreSQL, scoped to the
// caller's tenant schema. It is the database counterpart of the backend
// client and produces identical records.
type DBSource struct {
	repo       RepositoryInterface
	lookup     SchemaLookup
	normalizer *normalize.Normalizer
}

func NewDBSource(repo RepositoryInterface, lookup SchemaLookup, normalizer *normalize.Normalizer) *DBSource {
	if normalizer == nil {
		normalizer = normalize.New(nil, nil)
	}
	return &DBSource{repo: repo, lookup: lookup, normalizer: normalizer}
}

func (s *DBSource) GetPatient(ctx context.Context, patientID string) (*clinical.Patient, error) {
	schemaName, err := ResolveSchema(ctx, s.lookup)
	if err != nil {
		return nil, err
	}

	w, err := s.repo.GetPatient(ctx, schemaName, patientID)
	if err != nil {
		return nil, err
	}

	p, err := s.normalizer.PatientRecord(ctx, *w)
	if err != nil {
		return nil, fmt.Errorf("patient %s: %w", patientID, err)
	}
	return &p, nil
}

// ListPrescriptions skips rows that fail validation, like the API path does.
func (s *DBSource) ListPrescriptions(ctx context.Context, patientID string) ([]clinical.Prescription, error) {
	schemaName, err := ResolveSchema(ctx, s.lookup)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListPrescriptions(ctx, schemaName, patientID)
	if err != nil {
		return nil, err
	}

	return s.normalizer.PrescriptionRecords(ctx, rows), nil
}

func (s *DBSource) SearchMedicines(ctx context.Context, search string, params pagination.Params) ([]clinical.Medicine, int, error) {
	schemaName, err := ResolveSchema(ctx, s.lookup)
	if err != nil {
		return nil, 0, err
	}

	params.Validate()
	rows, total, err := s.repo.ListMedicines(ctx, schemaName, params.Limit, params.CalculateOffset(), search)
	if err != nil {
		return nil, 0, err
	}

	return s.normalizer.MedicineRecords(ctx, rows), total, nil
}
