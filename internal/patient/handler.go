package patient

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/pagination"
)

type Handler struct {
	service ServiceInterface
	logger  *zap.Logger
}

func NewHandler(service ServiceInterface, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger.Named("patient.handler")}
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Patient ID is required")
		return
	}

	patient, err := h.service.GetPatient(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "fetch_failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PatientSuccessResponse{
		Success: true,
		Patient: patient,
	})
}

func (h *Handler) ListPrescriptions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Patient ID is required")
		return
	}

	rxs, err := h.service.ListPrescriptions(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, "fetch_failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PrescriptionListResponse{
		Success:       true,
		Prescriptions: rxs,
		Total:         len(rxs),
	})
}

func (h *Handler) ListMedicines(w http.ResponseWriter, r *http.Request) {
	params := pagination.ParseParams(r)
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	response, err := h.service.SearchMedicines(r.Context(), search, params)
	if err != nil {
		h.respondServiceError(w, "fetch_failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, fallback string, err error) {
	switch {
	case errors.Is(err, clinical.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, clinical.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, ErrMissingOrganization):
		respondError(w, http.StatusBadRequest, "missing_org_info", "Organization information not found in token")
	case errors.Is(err, ErrSchemaNotFound):
		respondError(w, http.StatusNotFound, "org_not_found", "Organization schema not found")
	case errors.Is(err, clinical.ErrUnavailable):
		h.logger.Warn("record source unavailable", zap.Error(err))
		respondError(w, http.StatusServiceUnavailable, "upstream_unavailable", err.Error())
	default:
		h.logger.Error("patient request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, fallback, err.Error())
	}
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   errorType,
		"message": message,
	})
}
