// Package summary keeps the embedded contact summary panel consistent with the
// data it holds.
//
// The panel loads asynchronously and only exposes a "loaded" predicate, so
// Refresh polls it before reading. Each Refresh owns its poll; the ticker is
// stopped exactly once when the predicate flips.
package summary

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"caseintake/internal/intake/metrics"
	"caseintake/internal/intake/notify"
	"caseintake/internal/intake/ports"
	"caseintake/pkg/platform/poll"
)

// DefaultPollInterval matches the host's panel refresh cadence.
const DefaultPollInterval = 500 * time.Millisecond

// Layout names the panel and its child fields.
type Layout struct {
	PanelName    string
	EmailField   string
	PhoneField   string
	PollInterval time.Duration
	// PollTimeout bounds the wait for the panel. Zero waits indefinitely.
	PollTimeout time.Duration
}

// DefaultLayout returns the standard case form panel layout.
func DefaultLayout() Layout {
	return Layout{
		PanelName:    "contact_summary",
		EmailField:   "emailaddress1",
		PhoneField:   "telephone1",
		PollInterval: DefaultPollInterval,
	}
}

// Notifier sets and clears banners.
type Notifier interface {
	Notify(ctx context.Context, form ports.Form, id notify.ID)
	Clear(ctx context.Context, form ports.Form, id notify.ID)
}

// Details is what a completed refresh observed.
type Details struct {
	Email string
	Phone string
}

// Empty reports whether neither field has a value.
func (d Details) Empty() bool {
	return d.Email == "" && d.Phone == ""
}

// Synchronizer drives the summary panel.
type Synchronizer struct {
	layout   Layout
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tickers  poll.TickerFactory
}

type Option func(*Synchronizer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Synchronizer) {
		s.metrics = m
	}
}

func WithLayout(l Layout) Option {
	return func(s *Synchronizer) {
		s.layout = l
	}
}

// WithTickerFactory replaces the poll ticker, mainly for tests.
func WithTickerFactory(f poll.TickerFactory) Option {
	return func(s *Synchronizer) {
		s.tickers = f
	}
}

// New constructs a Synchronizer.
func New(notifier Notifier, opts ...Option) (*Synchronizer, error) {
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	s := &Synchronizer{
		layout:   DefaultLayout(),
		notifier: notifier,
		logger:   slog.New(slog.DiscardHandler),
		tickers:  poll.NewTicker,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.layout.PollInterval <= 0 {
		s.layout.PollInterval = DefaultPollInterval
	}
	return s, nil
}

// Refresh waits for the panel to load, then shows each child field that has a
// value and hides the rest. With no values at all the panel is hidden and the
// no-contact-details banner is raised; otherwise the panel is shown and that
// banner cleared.
//
// A form without the panel is skipped. Only cancellation of ctx is returned.
func (s *Synchronizer) Refresh(ctx context.Context, form ports.Form) error {
	panel, ok := form.Panel(s.layout.PanelName)
	if !ok {
		s.logger.InfoContext(ctx, "summary panel not on form, skipping refresh", "panel", s.layout.PanelName)
		return nil
	}

	ticks := 0
	err := poll.Until(ctx, s.layout.PollInterval, panel.IsLoaded,
		poll.WithTicker(s.tickers),
		poll.WithTimeout(s.layout.PollTimeout),
		poll.WithTickHook(func(bool) { ticks++ }),
	)
	switch {
	case errors.Is(err, poll.ErrTimeout):
		s.logger.WarnContext(ctx, "summary panel did not load in time",
			"panel", s.layout.PanelName,
			"timeout", s.layout.PollTimeout,
		)
		s.notifier.Notify(ctx, form, notify.PanelTimeout)
		return nil
	case err != nil:
		return err
	}
	s.metrics.ObservePollTicks(ticks)

	details := Details{
		Email: s.read(ctx, panel, s.layout.EmailField),
		Phone: s.read(ctx, panel, s.layout.PhoneField),
	}
	s.apply(ctx, form, panel, details)
	return nil
}

func (s *Synchronizer) apply(ctx context.Context, form ports.Form, panel ports.Panel, d Details) {
	s.setChildVisible(panel, s.layout.EmailField, d.Email != "")
	s.setChildVisible(panel, s.layout.PhoneField, d.Phone != "")

	if d.Empty() {
		panel.SetVisible(false)
		s.notifier.Notify(ctx, form, notify.NoContactDetails)
		return
	}
	panel.SetVisible(true)
	s.notifier.Clear(ctx, form, notify.NoContactDetails)
}

// read returns the trimmed field value; unreadable fields read as absent.
func (s *Synchronizer) read(ctx context.Context, panel ports.Panel, field string) string {
	v, err := panel.Text(field)
	if err != nil {
		s.logger.DebugContext(ctx, "summary panel field unreadable", "field", field, "error", err)
		return ""
	}
	return strings.TrimSpace(v)
}

func (s *Synchronizer) setChildVisible(panel ports.Panel, field string, visible bool) {
	if ctl, ok := panel.Control(field); ok {
		ctl.SetVisible(visible)
	}
}
