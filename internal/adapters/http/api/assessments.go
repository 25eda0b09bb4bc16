package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/okian/dons/internal/adapters/repository"
	service "github.com/okian/dons/internal/app"
	"github.com/okian/dons/internal/app/notify"
	"github.com/okian/dons/internal/domain/model"
	"github.com/okian/dons/internal/domain/questionnaire"
	"github.com/okian/dons/internal/domain/scoring"
	"github.com/okian/dons/pkg/logger"
)

const maxBodyBytes = 1 << 20

// submitRequest mirrors the OpenAPI schema for POST /assessments.
type submitRequest struct {
	SubmissionID string                `json:"submission_id" validate:"omitempty,max=128"`
	Name         string                `json:"name" validate:"required,max=200"`
	Organization string                `json:"organization" validate:"required,max=200"`
	Email        string                `json:"email" validate:"max=320"`
	Answers      questionnaire.Answers `json:"answers" validate:"required"`
}

type submitResponse struct {
	ID        string          `json:"id"`
	Duplicate bool            `json:"duplicate"`
	Ranking   scoring.Ranking `json:"ranking"`
	Delivery  *notify.Status  `json:"delivery"`
}

type assessmentResponse struct {
	ID           string                `json:"id"`
	Participant  model.Participant     `json:"participant"`
	Answers      questionnaire.Answers `json:"answers"`
	Ranking      scoring.Ranking       `json:"ranking"`
	CreatedAt    time.Time             `json:"created_at"`
	Delivery     *notify.Status        `json:"delivery,omitempty"`
	SubmissionID string                `json:"submission_id"`
}

type resendRequest struct {
	To string `json:"to"`
}

// AssessmentsHandler handles submission, lookup and resend requests.
type AssessmentsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewAssessmentsHandler creates a new assessments handler.
func NewAssessmentsHandler(deps Dependencies, log logger.Logger) *AssessmentsHandler {
	return &AssessmentsHandler{deps: deps, logger: log}
}

// HandlePostAssessment handles POST /assessments requests.
func (h *AssessmentsHandler) HandlePostAssessment(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_assessment"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethod))
		return
	}
	var req submitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Submit(r.Context(), service.Submission{
		SubmissionID: req.SubmissionID,
		Participant: model.Participant{
			Name:         req.Name,
			Organization: req.Organization,
			Email:        req.Email,
		},
		Answers: req.Answers,
	})
	switch {
	case errors.Is(err, service.ErrInvalidSubmission):
		writeError(w, http.StatusBadRequest, "invalid_submission", Wrap(op, err))
		return
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	case err != nil:
		h.logger.Error(r.Context(), "submit assessment", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, submitResponse{
		ID:        res.ID,
		Duplicate: res.Duplicate,
		Ranking:   res.Ranking,
		Delivery:  res.Delivery,
	})
}

// HandleGetAssessment handles GET /assessments/{id} requests.
func (h *AssessmentsHandler) HandleGetAssessment(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_assessment"
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethod))
		return
	}
	id := r.PathValue("id")
	a, err := h.deps.Lookup(r.Context(), id)
	switch {
	case errors.Is(err, repository.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid_id", WrapKind(op, ErrBadRequest, err))
		return
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	resp := assessmentResponse{
		ID:           a.ID,
		SubmissionID: a.SubmissionID,
		Participant:  a.Participant,
		Answers:      a.Answers,
		Ranking:      a.Ranking,
		CreatedAt:    a.CreatedAt,
	}
	if st, ok := h.deps.DeliveryStatus(r.Context(), a.ID); ok {
		resp.Delivery = st
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleResend handles POST /assessments/{id}/resend requests. The outcome
// is always reported in the body; only transport problems change the status.
func (h *AssessmentsHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	const op = "api.resend"
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethod))
		return
	}
	var req resendRequest
	// an empty body means "resend to the stored address"
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Resend(r.Context(), r.PathValue("id"), req.To)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
