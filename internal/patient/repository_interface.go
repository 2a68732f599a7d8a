package patient

import (
	"context"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/normalize"
)

// RepositoryInterface defines the contract for patient data access
type RepositoryInterface interface {
	GetPatient(ctx context.Context, schemaName string, id string) (*normalize.PatientWire, error)
	ListPrescriptions(ctx context.Context, schemaName string, patientID string) ([]normalize.PrescriptionWire, error)
	ListMedicines(ctx context.Context, schemaName string, limit, offset int, search string) ([]normalize.MedicineWire, int, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
