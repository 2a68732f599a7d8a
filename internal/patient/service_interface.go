package patient

import (
	"context"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/pagination"
)

// ServiceInterface defines the contract for patient record operations
type ServiceInterface interface {
	GetPatient(ctx context.Context, id string) (*clinical.Patient, error)
	ListPrescriptions(ctx context.Context, patientID string) ([]clinical.Prescription, error)
	SearchMedicines(ctx context.Context, search string, params pagination.Params) (*PaginatedMedicineListResponse, error)
}

// RecordSource supplies normalized patient records. The backend client and
// DBSource both implement it.
type RecordSource interface {
	GetPatient(ctx context.Context, patientID string) (*clinical.Patient, error)
	ListPrescriptions(ctx context.Context, patientID string) ([]clinical.Prescription, error)
}

// MedicineCatalog searches the medicines catalog and reports the total number
// of matches.
type MedicineCatalog interface {
	SearchMedicines(ctx context.Context, search string, params pagination.Params) ([]clinical.Medicine, int, error)
}

// MetricsRecorder receives patient record operations
type MetricsRecorder interface {
	RecordPatientOperation(ctx context.Context, operation string)
}

var (
	_ ServiceInterface = (*Service)(nil)
	_ RecordSource     = (*DBSource)(nil)
	_ MedicineCatalog  = (*DBSource)(nil)
)
