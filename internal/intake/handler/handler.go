package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"caseintake/internal/intake/form"
	"caseintake/internal/intake/ports"
	"caseintake/internal/intake/summary"
	"caseintake/internal/intake/workflow"
	"caseintake/pkg/platform/httputil"
	"caseintake/pkg/requestcontext"
)

// Resolver runs the customer resolution workflow against a form.
type Resolver interface {
	Run(ctx context.Context, form ports.Form) workflow.Result
}

// Handler serves form resolution for hosts that keep form state server-side
// or want a preview of the resolved state.
type Handler struct {
	resolver Resolver
	records  ports.RecordService
	fields   workflow.Layout
	panel    summary.Layout
	logger   *slog.Logger
}

// New constructs a form resolution handler. records backs the summary panel,
// which loads the primary contact on its own as the host's panel would.
func New(resolver Resolver, records ports.RecordService, fields workflow.Layout, panel summary.Layout, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		resolver: resolver,
		records:  records,
		fields:   fields,
		panel:    panel,
		logger:   logger,
	}
}

// Register mounts form endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/case-forms/resolve", h.HandleResolve)
}

// HandleResolve handles POST /v1/case-forms/resolve requests.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, panel := h.session(ctx, req)
	res := h.resolver.Run(ctx, session)
	if panel != nil {
		panel.Wait()
	}

	h.logger.InfoContext(ctx, "case form resolved",
		"request_id", requestID,
		"outcome", res.Outcome,
		"customer_id", res.CustomerID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, h.snapshot(session, panel, res))
}

func (h *Handler) session(ctx context.Context, req *ResolveRequest) (*form.Session, *form.BoundPanel) {
	opts := []form.Option{form.WithLookup(h.fields.CustomerField, req.ParsedCustomer())}
	if req.HasPrimaryContactControl() {
		opts = append(opts, form.WithLookup(h.fields.PrimaryContactField, req.ParsedPrimaryContact()))
	} else {
		opts = append(opts, form.WithAttributeOnly(h.fields.PrimaryContactField, req.ParsedPrimaryContact()))
	}

	var panel *form.BoundPanel
	if req.HasSummaryPanel() {
		panel = form.NewBoundPanel(h.records, []string{h.panel.EmailField, h.panel.PhoneField},
			form.WithPanelLogger(h.logger),
			form.WithLoadContext(ctx),
		)
		opts = append(opts, form.WithPanel(h.panel.PanelName, panel))
	}

	session := form.New(opts...)
	if panel != nil {
		panel.Bind(session, h.fields.PrimaryContactField)
	}
	return session, panel
}

func (h *Handler) snapshot(session *form.Session, panel *form.BoundPanel, res workflow.Result) *ResolveResponse {
	out := &ResolveResponse{
		Outcome:       string(res.Outcome),
		Customer:      toLookup(session.Value(h.fields.CustomerField)),
		Notifications: session.Banners(),
	}
	out.PrimaryContact.Value = toLookup(session.Value(h.fields.PrimaryContactField))
	if visible, ok := session.ControlVisible(h.fields.PrimaryContactField); ok {
		out.PrimaryContact.Visible = &visible
	}
	if level, ok := session.RequiredLevel(h.fields.PrimaryContactField); ok {
		out.PrimaryContact.RequiredLevel = string(level)
	}
	if panel != nil {
		out.SummaryPanel = toPanel(panel.State())
	}
	return out
}
