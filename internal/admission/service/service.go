// Package service admits cases and moves them through their lifecycle.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Publisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"caseintake/internal/admission"
	"caseintake/internal/admission/events"
	"caseintake/internal/admission/metrics"
	"caseintake/internal/admission/models"
	"caseintake/pkg/domain"
	dErrors "caseintake/pkg/domain-errors"
	"caseintake/pkg/platform/sentinel"
	"caseintake/pkg/requestcontext"
)

const tracerName = "caseintake/admission/service"

// Store persists cases. CreateIfNoActive must fail with sentinel.ErrConflict
// when the customer already has an active case, atomically with the insert.
type Store interface {
	CreateIfNoActive(ctx context.Context, c *models.Case) error
	CountActive(ctx context.Context, customer domain.RecordID) (int, error)
	FindByID(ctx context.Context, id domain.CaseID) (*models.Case, error)
	TransitionState(ctx context.Context, id domain.CaseID, from, to models.State, now time.Time) (*models.Case, error)
}

// Publisher delivers case lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// AdmitRequest describes the case being created.
type AdmitRequest struct {
	CustomerID   string
	CustomerKind string
	Title        string
}

// Service applies the admission rule and owns case state changes.
type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
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

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New constructs a Service. Events go to an in-memory recorder unless a
// publisher is supplied.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("case store is required")
	}
	s := &Service{
		store:     store,
		publisher: events.NewRecorder(),
		logger:    slog.New(slog.DiscardHandler),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Admit creates an active case for the customer, or rejects the request when
// the reference is unusable or the customer already has an active case.
func (s *Service) Admit(ctx context.Context, req AdmitRequest) (*models.Case, error) {
	ctx, span := s.tracer.Start(ctx, "admission.Admit")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveAdmit(time.Since(start)) }()

	in := admission.Input{CustomerID: req.CustomerID, CustomerKind: req.CustomerKind}
	customer, reason := admission.ParseCustomer(in)
	if reason != admission.ReasonNone {
		return nil, s.reject(ctx, span, admission.Decision{Reason: reason}, domain.NormalizeRecordID(req.CustomerID))
	}
	span.SetAttributes(attribute.String("customer_id", customer.ID.String()))

	active, err := s.store.CountActive(ctx, customer.ID)
	if err != nil {
		return nil, s.internal(ctx, span, err, "failed to check active cases")
	}
	decision := admission.Evaluate(in, active)
	if !decision.Admit {
		return nil, s.reject(ctx, span, decision, customer.ID)
	}

	now := requestcontext.Now(ctx)
	c, err := models.NewCase(domain.NewCaseID(), customer.ID, customer.Kind, req.Title, now)
	if err != nil {
		return nil, s.internal(ctx, span, err, "failed to build case")
	}
	if err := s.store.CreateIfNoActive(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race with a concurrent admission for the same customer.
			conflict := admission.Decision{Reason: admission.ReasonActiveCaseExists, Customer: customer}
			return nil, s.reject(ctx, span, conflict, customer.ID)
		}
		return nil, s.internal(ctx, span, err, "failed to create case")
	}

	s.metrics.IncrementAdmitted()
	s.logger.InfoContext(ctx, "case admitted",
		"case_id", c.ID.String(),
		"customer_id", c.CustomerID,
		"customer_kind", c.CustomerKind,
	)
	s.publish(ctx, events.Event{
		Type:       events.TypeAdmitted,
		CaseID:     c.ID.String(),
		CustomerID: c.CustomerID,
		OccurredAt: now,
	})
	span.SetStatus(codes.Ok, "")
	return c, nil
}

// Get returns a case by id.
func (s *Service) Get(ctx context.Context, id domain.CaseID) (*models.Case, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
	}
	return c, nil
}

// Resolve closes an active case as resolved.
func (s *Service) Resolve(ctx context.Context, id domain.CaseID) (*models.Case, error) {
	return s.transition(ctx, id, models.StateResolved, events.TypeResolved)
}

// Cancel closes an active case as cancelled.
func (s *Service) Cancel(ctx context.Context, id domain.CaseID) (*models.Case, error) {
	return s.transition(ctx, id, models.StateCancelled, events.TypeCancelled)
}

func (s *Service) transition(ctx context.Context, id domain.CaseID, to models.State, eventType events.Type) (*models.Case, error) {
	ctx, span := s.tracer.Start(ctx, "admission.Transition", trace.WithAttributes(
		attribute.String("case_id", id.String()),
		attribute.String("state", string(to)),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	c, err := s.store.TransitionState(ctx, id, models.StateActive, to, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition failed")
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeConflict, "case is not active")
		default:
			s.logger.ErrorContext(ctx, "failed to transition case", "case_id", id.String(), "error", err)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update case")
		}
	}

	s.metrics.IncrementTransition(string(to))
	s.logger.InfoContext(ctx, "case state changed", "case_id", id.String(), "state", to)
	s.publish(ctx, events.Event{
		Type:       eventType,
		CaseID:     c.ID.String(),
		CustomerID: c.CustomerID,
		OccurredAt: now,
	})
	span.SetStatus(codes.Ok, "")
	return c, nil
}

func (s *Service) reject(ctx context.Context, span trace.Span, d admission.Decision, customer domain.RecordID) error {
	err := d.Err()
	span.SetAttributes(attribute.String("reason", string(d.Reason)))
	span.SetStatus(codes.Error, string(d.Reason))
	s.metrics.IncrementRejected(string(d.Reason))
	s.logger.InfoContext(ctx, "case rejected", "customer_id", customer, "reason", d.Reason)
	s.publish(ctx, events.Event{
		Type:       events.TypeRejected,
		CustomerID: customer,
		Reason:     string(d.Reason),
		OccurredAt: requestcontext.Now(ctx),
	})
	return err
}

func (s *Service) internal(ctx context.Context, span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	s.logger.ErrorContext(ctx, msg, "error", err)
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// publish is best effort: the case state is already committed.
func (s *Service) publish(ctx context.Context, e events.Event) {
	e.RequestID = requestcontext.RequestID(ctx)
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.metrics.IncrementPublishFailure(string(e.Type))
		s.logger.WarnContext(ctx, "failed to publish case event", "type", e.Type, "error", err)
	}
}
