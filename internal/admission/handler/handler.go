package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"caseintake/internal/admission/models"
	"caseintake/internal/admission/service"
	"caseintake/pkg/domain"
	dErrors "caseintake/pkg/domain-errors"
	"caseintake/pkg/platform/httputil"
	"caseintake/pkg/requestcontext"
)

// Service is the admission service as used by the handler.
type Service interface {
	Admit(ctx context.Context, req service.AdmitRequest) (*models.Case, error)
	Get(ctx context.Context, id domain.CaseID) (*models.Case, error)
	Resolve(ctx context.Context, id domain.CaseID) (*models.Case, error)
	Cancel(ctx context.Context, id domain.CaseID) (*models.Case, error)
}

// Handler serves the case endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{service: svc, logger: logger}
}

// Register mounts case endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/cases", h.HandleCreate)
	r.Get("/v1/cases/{id}", h.HandleGet)
	r.Post("/v1/cases/{id}/resolve", h.HandleResolve)
	r.Post("/v1/cases/{id}/cancel", h.HandleCancel)
}

// HandleCreate handles POST /v1/cases.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateCaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.Admit(ctx, req.toAdmit())
	if err != nil {
		h.logger.InfoContext(ctx, "case not admitted",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCaseResponse(c))
}

// HandleGet handles GET /v1/cases/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.withCase(w, r, h.service.Get)
}

// HandleResolve handles POST /v1/cases/{id}/resolve.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	h.withCase(w, r, h.service.Resolve)
}

// HandleCancel handles POST /v1/cases/{id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.withCase(w, r, h.service.Cancel)
}

func (h *Handler) withCase(w http.ResponseWriter, r *http.Request, op func(context.Context, domain.CaseID) (*models.Case, error)) {
	ctx := r.Context()
	id, err := domain.ParseCaseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid case id"))
		return
	}
	c, err := op(ctx, id)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "case operation failed",
				"request_id", requestcontext.RequestID(ctx),
				"case_id", id.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCaseResponse(c))
}
