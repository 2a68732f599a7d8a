package mindmap

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/auth"
)

type Handler struct {
	sessions *Sessions
	logger   *zap.Logger
}

func NewHandler(sessions *Sessions, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, logger: logger.Named("mindmap.handler")}
}

type MindMapResponse struct {
	Success   bool   `json:"success"`
	State     State  `json:"state"`
	PatientID string `json:"patientId,omitempty"`
	Graph     *Graph `json:"graph,omitempty"`
	View      *View  `json:"view,omitempty"`
}

type HighlightRequest struct {
	NodeID string `json:"node_id"`
}

// GetPatientMindMap loads the mind map for {id} into the caller's session.
// An optional ?highlight=<nodeID> is applied to the fresh graph.
func (h *Handler) GetPatientMindMap(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "validation_error", "Patient ID is required")
		return
	}

	g, err := viewer.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrSuperseded) {
			h.respondError(w, http.StatusConflict, "request_superseded", err.Error())
			return
		}
		h.respondError(w, http.StatusInternalServerError, "mindmap_failed", err.Error())
		return
	}

	// Answer from the graph this request loaded, even if a newer load has
	// replaced it in the session since.
	snap := Snapshot{State: stateOf(g), PatientID: id, Graph: g}
	if hl := r.URL.Query().Get("highlight"); hl != "" {
		if err := viewer.HighlightOn(g, hl); err != nil {
			h.logger.Debug("ignoring highlight", zap.String("node_id", hl), zap.Error(err))
		} else {
			snap.Highlighted = hl
		}
	}

	h.respondSnapshot(w, snap)
}

// GetCurrentMindMap returns whatever the caller's session is showing.
func (h *Handler) GetCurrentMindMap(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	h.respondSnapshot(w, viewer.Snapshot())
}

func (h *Handler) SetHighlight(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}

	var req HighlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}
	if req.NodeID == "" {
		h.respondError(w, http.StatusBadRequest, "validation_error", "node_id is required")
		return
	}

	if err := viewer.Highlight(req.NodeID); err != nil {
		switch {
		case errors.Is(err, ErrNothingLoaded):
			h.respondError(w, http.StatusConflict, "nothing_loaded", err.Error())
		case errors.Is(err, ErrUnknownNode):
			h.respondError(w, http.StatusNotFound, "not_found", err.Error())
		default:
			h.respondError(w, http.StatusInternalServerError, "highlight_failed", err.Error())
		}
		return
	}

	h.respondSnapshot(w, viewer.Snapshot())
}

func (h *Handler) ClearHighlight(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}
	viewer.ClearHighlight()
	h.respondSnapshot(w, viewer.Snapshot())
}

func (h *Handler) viewer(w http.ResponseWriter, r *http.Request) (*Viewer, bool) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return nil, false
	}
	return h.sessions.Get(principal.UserID), true
}

func (h *Handler) respondSnapshot(w http.ResponseWriter, snap Snapshot) {
	resp := MindMapResponse{
		Success:   true,
		State:     snap.State,
		PatientID: snap.PatientID,
		Graph:     snap.Graph,
	}
	if snap.Graph != nil {
		view := Render(snap.Graph, snap.Highlighted)
		resp.View = &view
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   errorType,
		"message": message,
	})
	if err != nil {
		h.logger.Debug("failed to write error response", zap.String("error_type", errorType), zap.Error(err))
	}
}
