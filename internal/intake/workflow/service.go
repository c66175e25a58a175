// Package workflow resolves a case form's customer into its primary contact
// and summary panel state.
//
// Run is the single entry point, invoked on form load and whenever the
// customer reference changes. Every terminal branch ends with a summary panel
// refresh so the panel reflects the final contact state. Failures never reach
// the caller: remote lookup failures become call-site notifications and
// anything else becomes the generic load-error notification.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"caseintake/internal/intake/metrics"
	"caseintake/internal/intake/notify"
	"caseintake/internal/intake/ports"
	"caseintake/pkg/domain"
)

const tracerName = "caseintake/intake/workflow"

// Outcome names the terminal branch a run took.
type Outcome string

const (
	OutcomeNoCustomer       Outcome = "no_customer"
	OutcomePerson           Outcome = "person"
	OutcomeContactResolved  Outcome = "contact_resolved"
	OutcomeNoPrimaryContact Outcome = "no_primary_contact"
	OutcomeAccountError     Outcome = "account_error"
	OutcomeContactError     Outcome = "contact_error"
	OutcomeLoadError        Outcome = "load_error"
	OutcomeStale            Outcome = "stale"
	OutcomeCancelled        Outcome = "cancelled"
)

// Result describes a completed run. It is informational; hosts need not
// inspect it.
type Result struct {
	Outcome    Outcome
	CustomerID domain.RecordID
	ContactID  domain.RecordID
	Err        error
}

// FieldState mutates form fields.
type FieldState interface {
	SetVisible(ctx context.Context, form ports.Form, field string, visible bool)
	SetRequirementLevel(ctx context.Context, form ports.Form, field string, level ports.RequirementLevel)
	SetValue(ctx context.Context, form ports.Form, field string, value *ports.Lookup)
	Value(ctx context.Context, form ports.Form, field string) *ports.Lookup
}

// PanelRefresher brings the summary panel in line with its data.
type PanelRefresher interface {
	Refresh(ctx context.Context, form ports.Form) error
}

// Notifier sets and clears banners.
type Notifier interface {
	Notify(ctx context.Context, form ports.Form, id notify.ID)
	Clear(ctx context.Context, form ports.Form, id notify.ID)
}

// Layout names the form and record fields the workflow touches.
type Layout struct {
	CustomerField       string
	PrimaryContactField string
	// OrganizationContactField is the organization's linked-person reference.
	OrganizationContactField string
	PersonNameField          string
	PersonEmailField         string
	PersonPhoneField         string
	// FetchTimeout bounds each record lookup. Zero leaves lookups unbounded.
	FetchTimeout time.Duration
	// DiscardStale drops the effects of a run once a newer run has started on
	// the same form.
	DiscardStale bool
}

// DefaultLayout returns the standard case form layout.
func DefaultLayout() Layout {
	return Layout{
		CustomerField:            "customerid",
		PrimaryContactField:      "primarycontactid",
		OrganizationContactField: "primarycontactid",
		PersonNameField:          "fullname",
		PersonEmailField:         "emailaddress1",
		PersonPhoneField:         "telephone1",
	}
}

// Service runs the customer resolution workflow.
type Service struct {
	records  ports.RecordService
	fields   FieldState
	panel    PanelRefresher
	notifier Notifier
	layout   Layout
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	now      func() time.Time

	mu     sync.Mutex
	tokens map[ports.Form]uint64
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLayout(l Layout) Option {
	return func(s *Service) {
		s.layout = l
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New constructs a Service.
func New(records ports.RecordService, fields FieldState, panel PanelRefresher, notifier Notifier, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, errors.New("record service is required")
	}
	if fields == nil {
		return nil, errors.New("field state controller is required")
	}
	if panel == nil {
		return nil, errors.New("panel refresher is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	s := &Service{
		records:  records,
		fields:   fields,
		panel:    panel,
		notifier: notifier,
		layout:   DefaultLayout(),
		logger:   slog.New(slog.DiscardHandler),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
		tokens:   make(map[ports.Form]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// errStale marks a run superseded by a newer run on the same form.
var errStale = errors.New("superseded by a newer run")

// Run resolves the form's customer. It never panics and never returns an
// error; the Result is for logging and tests.
func (s *Service) Run(ctx context.Context, form ports.Form) (res Result) {
	ctx, span := s.tracer.Start(ctx, "workflow.Run")
	defer span.End()

	token := s.begin(form)
	defer func() {
		if r := recover(); r != nil {
			res = s.fail(ctx, form, fmt.Errorf("workflow panic: %v", r))
		}
		s.finish(ctx, span, res)
	}()

	res = s.run(ctx, form, token)
	return res
}

func (s *Service) run(ctx context.Context, form ports.Form, token uint64) Result {
	customer := s.fields.Value(ctx, form, s.layout.CustomerField)
	if customer == nil || customer.ID.IsEmpty() {
		return s.noCustomer(ctx, form)
	}

	id := domain.NormalizeRecordID(customer.ID.String())
	res := Result{CustomerID: id}

	switch customer.Kind {
	case domain.KindPerson:
		s.fields.SetVisible(ctx, form, s.layout.PrimaryContactField, false)
		s.fields.SetRequirementLevel(ctx, form, s.layout.PrimaryContactField, ports.RequirementNone)
		res.Outcome = OutcomePerson
		return res
	case domain.KindOrganization:
		return s.organization(ctx, form, token, id)
	default:
		return s.fail(ctx, form, fmt.Errorf("unsupported customer kind %q", customer.Kind))
	}
}

func (s *Service) noCustomer(ctx context.Context, form ports.Form) Result {
	if err := s.panel.Refresh(ctx, form); err != nil {
		return s.refreshFailed(ctx, form, Result{}, err)
	}
	s.fields.SetValue(ctx, form, s.layout.PrimaryContactField, nil)
	return Result{Outcome: OutcomeNoCustomer}
}

func (s *Service) organization(ctx context.Context, form ports.Form, token uint64, id domain.RecordID) Result {
	res := Result{CustomerID: id}
	s.fields.SetVisible(ctx, form, s.layout.PrimaryContactField, true)
	s.fields.SetRequirementLevel(ctx, form, s.layout.PrimaryContactField, ports.RequirementRequired)

	org, err := s.fetch(ctx, "organization", domain.KindOrganization, id, s.layout.OrganizationContactField)
	if s.stale(form, token) {
		return s.superseded(ctx, res)
	}
	if err != nil {
		if ctx.Err() != nil {
			return s.cancelled(ctx, res, err)
		}
		s.logger.WarnContext(ctx, "organization lookup failed",
			"customer_id", id,
			"category", ports.CategoryOf(err),
			"error", err,
		)
		s.notifier.Notify(ctx, form, notify.AccountError)
		res.Outcome, res.Err = OutcomeAccountError, err
		return s.finishBranch(ctx, form, res)
	}

	contactID := domain.NormalizeRecordID(org.Get(s.layout.OrganizationContactField))
	if contactID.IsEmpty() {
		s.logger.InfoContext(ctx, "organization has no primary contact", "customer_id", id)
		s.notifier.Notify(ctx, form, notify.NoPrimaryContact)
		res.Outcome = OutcomeNoPrimaryContact
		return s.finishBranch(ctx, form, res)
	}
	res.ContactID = contactID

	person, err := s.fetch(ctx, "person", domain.KindPerson, contactID,
		s.layout.PersonNameField, s.layout.PersonEmailField, s.layout.PersonPhoneField)
	if s.stale(form, token) {
		return s.superseded(ctx, res)
	}
	if err != nil {
		if ctx.Err() != nil {
			return s.cancelled(ctx, res, err)
		}
		s.logger.WarnContext(ctx, "primary contact lookup failed",
			"customer_id", id,
			"contact_id", contactID,
			"category", ports.CategoryOf(err),
			"error", err,
		)
		s.notifier.Notify(ctx, form, notify.ContactError)
		res.Outcome, res.Err = OutcomeContactError, err
		return s.finishBranch(ctx, form, res)
	}

	s.fields.SetValue(ctx, form, s.layout.PrimaryContactField, &ports.Lookup{
		ID:   contactID,
		Name: person.Get(s.layout.PersonNameField),
		Kind: domain.KindPerson,
	})
	res.Outcome = OutcomeContactResolved
	return s.finishBranch(ctx, form, res)
}

// finishBranch runs the panel refresh that ends every organization branch.
func (s *Service) finishBranch(ctx context.Context, form ports.Form, res Result) Result {
	if err := s.panel.Refresh(ctx, form); err != nil {
		return s.refreshFailed(ctx, form, res, err)
	}
	return res
}

func (s *Service) refreshFailed(ctx context.Context, form ports.Form, res Result, err error) Result {
	if ctx.Err() != nil {
		return s.cancelled(ctx, res, err)
	}
	return s.fail(ctx, form, fmt.Errorf("refresh summary panel: %w", err))
}

func (s *Service) fetch(ctx context.Context, callSite string, kind domain.RecordKind, id domain.RecordID, fields ...string) (*ports.Record, error) {
	if s.layout.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.layout.FetchTimeout)
		defer cancel()
	}
	start := s.now()
	rec, err := s.records.Fetch(ctx, kind, id, fields...)
	result := "ok"
	if err != nil {
		result = string(ports.CategoryOf(err))
	} else if rec == nil {
		err = ports.NewFetchError(ports.CategoryNotFound, kind, id, errors.New("empty response"))
		result = string(ports.CategoryNotFound)
	}
	s.metrics.ObserveFetch(callSite, result, s.now().Sub(start))
	return rec, err
}

func (s *Service) fail(ctx context.Context, form ports.Form, err error) Result {
	s.logger.ErrorContext(ctx, "customer resolution failed", "error", err)
	s.notifier.Notify(ctx, form, notify.LoadError)
	return Result{Outcome: OutcomeLoadError, Err: err}
}

func (s *Service) cancelled(ctx context.Context, res Result, err error) Result {
	s.logger.InfoContext(ctx, "customer resolution cancelled", "customer_id", res.CustomerID, "error", err)
	res.Outcome, res.Err = OutcomeCancelled, err
	return res
}

func (s *Service) superseded(ctx context.Context, res Result) Result {
	s.logger.InfoContext(ctx, "discarding superseded customer resolution", "customer_id", res.CustomerID)
	res.Outcome, res.Err = OutcomeStale, errStale
	return res
}

func (s *Service) finish(ctx context.Context, span trace.Span, res Result) {
	s.metrics.IncrementOutcome(string(res.Outcome))
	span.SetAttributes(
		attribute.String("caseintake.outcome", string(res.Outcome)),
		attribute.String("caseintake.customer_id", res.CustomerID.String()),
	)
	switch res.Outcome {
	case OutcomeLoadError, OutcomeAccountError, OutcomeContactError:
		if res.Err != nil {
			span.RecordError(res.Err)
		}
		span.SetStatus(codes.Error, string(res.Outcome))
	default:
		span.SetStatus(codes.Ok, "")
	}
	s.logger.DebugContext(ctx, "customer resolution finished",
		"outcome", res.Outcome,
		"customer_id", res.CustomerID,
		"contact_id", res.ContactID,
	)
}

// begin tags the run with a fresh per-form token when stale runs are discarded.
func (s *Service) begin(form ports.Form) uint64 {
	if !s.layout.DiscardStale {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[form]++
	return s.tokens[form]
}

func (s *Service) stale(form ports.Form, token uint64) bool {
	if !s.layout.DiscardStale {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[form] != token
}

// Forget drops the stale-run bookkeeping for a form that has been closed.
func (s *Service) Forget(form ports.Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, form)
}
