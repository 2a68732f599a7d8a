package patient

import (
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/pagination"
)

type PatientSuccessResponse struct {
	Success bool              `json:"success"`
	Patient *clinical.Patient `json:"patient"`
}

type PrescriptionListResponse struct {
	Success       bool                    `json:"success"`
	Prescriptions []clinical.Prescription `json:"prescriptions"`
	Total         int                     `json:"total"`
}

type PaginatedMedicineListResponse struct {
	Success    bool                `json:"success"`
	Medicines  []clinical.Medicine `json:"medicines"`
	Pagination pagination.Meta     `json:"pagination"`
}
