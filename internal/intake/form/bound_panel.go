package form

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"caseintake/internal/intake/ports"
)

// BoundPanel shows fields of the record referenced by a lookup attribute.
// Every change of the bound value starts a new background load; IsLoaded
// reports true once the most recent load has finished. Results of a
// superseded load are dropped.
type BoundPanel struct {
	records ports.RecordService
	fields  []string
	logger  *slog.Logger
	ctx     context.Context

	mu         sync.Mutex
	generation uint64
	loaded     bool
	visible    bool
	values     map[string]string
	controls   map[string]bool
	wg         sync.WaitGroup
}

// PanelOption configures a BoundPanel.
type PanelOption func(*BoundPanel)

// WithPanelLogger sets the logger for load failures.
func WithPanelLogger(logger *slog.Logger) PanelOption {
	return func(p *BoundPanel) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithLoadContext sets the context background loads run under.
func WithLoadContext(ctx context.Context) PanelOption {
	return func(p *BoundPanel) {
		if ctx != nil {
			p.ctx = ctx
		}
	}
}

// NewBoundPanel creates an empty, loaded panel showing fields.
func NewBoundPanel(records ports.RecordService, fields []string, opts ...PanelOption) *BoundPanel {
	p := &BoundPanel{
		records:  records,
		fields:   append([]string(nil), fields...),
		logger:   slog.New(slog.DiscardHandler),
		ctx:      context.Background(),
		loaded:   true,
		visible:  true,
		values:   map[string]string{},
		controls: make(map[string]bool, len(fields)),
	}
	for _, f := range fields {
		p.controls[f] = true
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Bind loads the panel from the attribute's current value and reloads it
// whenever the value changes.
func (p *BoundPanel) Bind(s *Session, attribute string) {
	s.OnChange(attribute, p.Load)
	p.Load(s.Value(attribute))
}

// Load starts loading the record referenced by ref. A nil or empty ref
// completes immediately with no content.
func (p *BoundPanel) Load(ref *ports.Lookup) {
	p.mu.Lock()
	p.generation++
	gen := p.generation
	if ref == nil || ref.ID.IsEmpty() {
		p.values = map[string]string{}
		p.loaded = true
		p.mu.Unlock()
		return
	}
	p.loaded = false
	p.mu.Unlock()

	p.wg.Add(1)
	go func(ref ports.Lookup) {
		defer p.wg.Done()
		values := map[string]string{}
		rec, err := p.records.Fetch(p.ctx, ref.Kind, ref.ID, p.fields...)
		if err != nil {
			p.logger.WarnContext(p.ctx, "summary panel load failed",
				"record_kind", ref.Kind,
				"record_id", ref.ID,
				"error", err,
			)
		} else {
			for _, f := range p.fields {
				if v := rec.Get(f); v != "" {
					values[f] = v
				}
			}
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if gen != p.generation {
			return
		}
		p.values = values
		p.loaded = true
	}(*ref)
}

// Wait blocks until all started loads have finished.
func (p *BoundPanel) Wait() {
	p.wg.Wait()
}

func (p *BoundPanel) IsLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

func (p *BoundPanel) SetVisible(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = visible
}

func (p *BoundPanel) Text(field string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.controls[field]; !ok {
		return "", fmt.Errorf("read %s: %w", field, ErrFieldNotFound)
	}
	return p.values[field], nil
}

func (p *BoundPanel) Control(field string) (ports.Control, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.controls[field]; !ok {
		return nil, false
	}
	return panelControl{set: func(v bool) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.controls[field] = v
	}}, true
}

// State returns the panel's current state.
func (p *BoundPanel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PanelState{
		Loaded:   p.loaded,
		Visible:  p.visible,
		Controls: copyBools(p.controls),
		Values:   copyStrings(p.values),
	}
}
