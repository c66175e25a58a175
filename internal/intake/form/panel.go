package form

import (
	"errors"
	"fmt"
	"sync"

	"caseintake/internal/intake/ports"
)

// ErrFieldNotFound is returned by Panel.Text for fields the panel does not carry.
var ErrFieldNotFound = errors.New("panel field not found")

// PanelState is a point-in-time view of a panel.
type PanelState struct {
	Loaded   bool              `json:"loaded"`
	Visible  bool              `json:"visible"`
	Controls map[string]bool   `json:"controls"`
	Values   map[string]string `json:"values,omitempty"`
}

// StaticPanel holds fixed content. Its loaded predicate is scripted: it
// reports false for the first pendingChecks calls to IsLoaded and true after.
type StaticPanel struct {
	mu            sync.Mutex
	pendingChecks int
	checks        int
	visible       bool
	values        map[string]string
	controls      map[string]bool
	unreadable    map[string]bool
}

// NewStaticPanel creates a loaded, visible panel with a child control per value.
func NewStaticPanel(values map[string]string) *StaticPanel {
	p := &StaticPanel{
		visible:    true,
		values:     make(map[string]string, len(values)),
		controls:   make(map[string]bool, len(values)),
		unreadable: make(map[string]bool),
	}
	for k, v := range values {
		p.values[k] = v
		p.controls[k] = true
	}
	return p
}

// LoadAfter makes IsLoaded report false for the next n checks.
func (p *StaticPanel) LoadAfter(n int) *StaticPanel {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingChecks = n
	return p
}

// Unreadable makes Text fail for field while keeping its control.
func (p *StaticPanel) Unreadable(field string) *StaticPanel {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unreadable[field] = true
	if _, ok := p.controls[field]; !ok {
		p.controls[field] = true
	}
	return p
}

// Checks returns how many times IsLoaded has been called.
func (p *StaticPanel) Checks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checks
}

func (p *StaticPanel) IsLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks++
	if p.pendingChecks > 0 {
		p.pendingChecks--
		return false
	}
	return true
}

func (p *StaticPanel) SetVisible(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = visible
}

func (p *StaticPanel) Text(field string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unreadable[field] {
		return "", fmt.Errorf("read %s: %w", field, ErrFieldNotFound)
	}
	v, ok := p.values[field]
	if !ok {
		return "", fmt.Errorf("read %s: %w", field, ErrFieldNotFound)
	}
	return v, nil
}

func (p *StaticPanel) Control(field string) (ports.Control, bool) {
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
func (p *StaticPanel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PanelState{
		Loaded:   p.pendingChecks == 0,
		Visible:  p.visible,
		Controls: copyBools(p.controls),
		Values:   copyStrings(p.values),
	}
}

type panelControl struct {
	set func(bool)
}

func (c panelControl) SetVisible(visible bool) { c.set(visible) }

func copyBools(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyStrings(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
