// Package fieldstate mutates visibility, requirement level and values of form
// reference fields. Missing controls or attributes are tolerated: the call is
// logged at debug level and becomes a no-op. Every setter is idempotent.
package fieldstate

import (
	"context"
	"log/slog"

	"caseintake/internal/intake/ports"
)

// Controller applies field state changes to a form.
type Controller struct {
	logger *slog.Logger
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a Controller.
func New(opts ...Option) *Controller {
	c := &Controller{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetVisible shows or hides the named control.
func (c *Controller) SetVisible(ctx context.Context, form ports.Form, field string, visible bool) {
	ctl, ok := form.Control(field)
	if !ok {
		c.missing(ctx, "control", field)
		return
	}
	ctl.SetVisible(visible)
}

// SetRequirementLevel sets the requirement level of the named attribute.
func (c *Controller) SetRequirementLevel(ctx context.Context, form ports.Form, field string, level ports.RequirementLevel) {
	attr, ok := form.Attribute(field)
	if !ok {
		c.missing(ctx, "attribute", field)
		return
	}
	attr.SetRequiredLevel(level)
}

// SetValue sets the named reference field; nil clears it.
func (c *Controller) SetValue(ctx context.Context, form ports.Form, field string, value *ports.Lookup) {
	attr, ok := form.Attribute(field)
	if !ok {
		c.missing(ctx, "attribute", field)
		return
	}
	attr.SetValue(value.Clone())
}

// Value reads the named reference field. A missing attribute reads as empty.
func (c *Controller) Value(ctx context.Context, form ports.Form, field string) *ports.Lookup {
	attr, ok := form.Attribute(field)
	if !ok {
		c.missing(ctx, "attribute", field)
		return nil
	}
	return attr.Value()
}

func (c *Controller) missing(ctx context.Context, what, field string) {
	c.logger.DebugContext(ctx, "form "+what+" not present, skipping", "field", field)
}
