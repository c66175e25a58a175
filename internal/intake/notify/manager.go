// Package notify manages the workflow's notification banners. Each banner is
// keyed by a stable ID: setting an ID replaces its banner and clearing an
// absent ID is a no-op. IDs are independent of one another.
package notify

import (
	"context"
	"log/slog"

	"caseintake/internal/intake/metrics"
	"caseintake/internal/intake/ports"
)

// ID is a stable banner identifier.
type ID string

const (
	LoadError        ID = "load-error"
	AccountError     ID = "account-error"
	ContactError     ID = "contact-error"
	NoPrimaryContact ID = "no-primary-contact"
	NoContactDetails ID = "no-contact-details"
	PanelTimeout     ID = "panel-timeout"
)

// Notice is the text and severity shown for an ID.
type Notice struct {
	Message  string         `yaml:"message"`
	Severity ports.Severity `yaml:"severity"`
}

// Catalog maps IDs to their notices.
type Catalog map[ID]Notice

// DefaultCatalog returns the built-in notices.
func DefaultCatalog() Catalog {
	return Catalog{
		LoadError:        {Message: "An error occurred while loading the customer details.", Severity: ports.SeverityError},
		AccountError:     {Message: "Unable to retrieve the selected account.", Severity: ports.SeverityError},
		ContactError:     {Message: "Unable to retrieve the account's primary contact.", Severity: ports.SeverityError},
		NoPrimaryContact: {Message: "The selected account has no primary contact. Select a contact for this case.", Severity: ports.SeverityWarning},
		NoContactDetails: {Message: "The primary contact has no email address or phone number.", Severity: ports.SeverityWarning},
		PanelTimeout:     {Message: "Contact details are taking longer than expected to load.", Severity: ports.SeverityWarning},
	}
}

// Merge returns c with non-empty entries of overrides applied.
func (c Catalog) Merge(overrides Catalog) Catalog {
	out := make(Catalog, len(c))
	for id, n := range c {
		out[id] = n
	}
	for id, n := range overrides {
		cur := out[id]
		if n.Message != "" {
			cur.Message = n.Message
		}
		if n.Severity != "" {
			cur.Severity = n.Severity
		}
		out[id] = cur
	}
	return out
}

// Manager sets and clears banners on a form.
type Manager struct {
	catalog Catalog
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

func WithCatalog(c Catalog) Option {
	return func(m *Manager) {
		m.catalog = DefaultCatalog().Merge(c)
	}
}

// New constructs a Manager using the default catalog unless overridden.
func New(opts ...Option) *Manager {
	m := &Manager{
		catalog: DefaultCatalog(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Notify shows the catalog notice for id.
func (m *Manager) Notify(ctx context.Context, form ports.Form, id ID) {
	n, ok := m.catalog[id]
	if !ok {
		n = Notice{Message: string(id), Severity: ports.SeverityError}
	}
	m.NotifyMessage(ctx, form, id, n.Message, n.Severity)
}

// NotifyMessage shows message under id, replacing any banner with that id.
func (m *Manager) NotifyMessage(ctx context.Context, form ports.Form, id ID, message string, severity ports.Severity) {
	form.SetNotification(message, severity, string(id))
	m.metrics.IncrementNotification(string(id), "set")
	m.logger.DebugContext(ctx, "notification set", "notification_id", id, "severity", severity)
}

// Clear removes the banner with id if present.
func (m *Manager) Clear(ctx context.Context, form ports.Form, id ID) {
	form.ClearNotification(string(id))
	m.metrics.IncrementNotification(string(id), "clear")
}
