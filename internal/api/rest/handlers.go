package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	domainerrors "github.com/crossfield/investigation-engine/internal/domain/errors"
	"github.com/crossfield/investigation-engine/internal/service/engine"
)

// Handler serves the investigation API
type Handler struct {
	engine   engine.Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the API handler
func NewHandler(svc engine.Service, logger *slog.Logger) *Handler {
	return &Handler{
		engine:   svc,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes registers all API routes on the mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/investigations", h.submitInvestigation)
	mux.HandleFunc("GET /api/v1/investigations/{id}", h.getInvestigationStatus)
	mux.HandleFunc("GET /api/v1/investigations/{id}/result", h.getInvestigationResult)
	mux.HandleFunc("GET /healthz", h.healthCheck)
}

func (h *Handler) submitInvestigation(w http.ResponseWriter, r *http.Request) {
	var req SubmitInvestigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domainerrors.NewValidationError("INVALID_JSON", "Request body is not valid JSON"))
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		writeError(w, domainerrors.NewValidationError("INVALID_REQUEST", err.Error()))
		return
	}

	submitReq, err := req.toSubmitRequest()
	if err != nil {
		writeError(w, domainerrors.NewValidationError("INVALID_REQUEST", err.Error()))
		return
	}
	submitReq.SubmittedBy = clientIP(r)

	id, err := h.engine.Submit(r.Context(), submitReq)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitInvestigationResponse{
		InvestigationID: id.String(),
		Status:          "accepted",
		SubmittedAt:     time.Now().UTC(),
	})
}

func (h *Handler) getInvestigationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, domainerrors.NewValidationError("INVALID_ID", "Investigation id must be a UUID"))
		return
	}

	status, err := h.engine.GetStatus(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) getInvestigationResult(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, domainerrors.NewValidationError("INVALID_ID", "Investigation id must be a UUID"))
		return
	}

	assessment, err := h.engine.GetResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, domainerrors.ErrResultNotReady) {
			writeJSON(w, http.StatusAccepted, map[string]string{"status": "pending"})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
