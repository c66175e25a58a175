// Package form is an in-memory implementation of the host form contract.
//
// A Session holds reference attributes, their controls, embedded panels and the
// notification banner set. It is safe for use by several goroutines; every
// setter is last-write-wins.
package form

import (
	"sort"
	"sync"

	"caseintake/internal/intake/ports"
)

// Banner is an active notification.
type Banner struct {
	ID       string         `json:"id"`
	Message  string         `json:"message"`
	Severity ports.Severity `json:"severity"`
}

type attributeState struct {
	value    *ports.Lookup
	required ports.RequirementLevel
}

// Session is one open form.
type Session struct {
	mu         sync.Mutex
	attributes map[string]*attributeState
	controls   map[string]bool
	panels     map[string]ports.Panel
	banners    map[string]Banner
	watchers   map[string][]func(*ports.Lookup)
}

// Option configures a Session at construction.
type Option func(*Session)

// WithLookup adds a reference attribute and its control (visible).
func WithLookup(name string, value *ports.Lookup) Option {
	return func(s *Session) {
		s.attributes[name] = &attributeState{value: value.Clone(), required: ports.RequirementNone}
		s.controls[name] = true
	}
}

// WithAttributeOnly adds a reference attribute that has no control on the layout.
func WithAttributeOnly(name string, value *ports.Lookup) Option {
	return func(s *Session) {
		s.attributes[name] = &attributeState{value: value.Clone(), required: ports.RequirementNone}
	}
}

// WithControl adds a control with the given initial visibility.
func WithControl(name string, visible bool) Option {
	return func(s *Session) {
		s.controls[name] = visible
	}
}

// WithPanel embeds a panel under name.
func WithPanel(name string, panel ports.Panel) Option {
	return func(s *Session) {
		s.panels[name] = panel
	}
}

// New creates a session.
func New(opts ...Option) *Session {
	s := &Session{
		attributes: make(map[string]*attributeState),
		controls:   make(map[string]bool),
		panels:     make(map[string]ports.Panel),
		banners:    make(map[string]Banner),
		watchers:   make(map[string][]func(*ports.Lookup)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to run after the named attribute's value is set.
// fn runs outside the session lock.
func (s *Session) OnChange(name string, fn func(*ports.Lookup)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers[name] = append(s.watchers[name], fn)
}

func (s *Session) Attribute(name string) (ports.LookupAttribute, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attributes[name]; !ok {
		return nil, false
	}
	return &attribute{session: s, name: name}, true
}

func (s *Session) Control(name string) (ports.Control, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.controls[name]; !ok {
		return nil, false
	}
	return &control{session: s, name: name}, true
}

func (s *Session) Panel(name string) (ports.Panel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.panels[name]
	return p, ok
}

func (s *Session) SetNotification(message string, severity ports.Severity, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banners[id] = Banner{ID: id, Message: message, Severity: severity}
}

func (s *Session) ClearNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.banners, id)
}

// Banner returns the active banner with id.
func (s *Session) Banner(id string) (Banner, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.banners[id]
	return b, ok
}

// Banners returns active banners ordered by id.
func (s *Session) Banners() []Banner {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Banner, 0, len(s.banners))
	for _, b := range s.banners {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ControlVisible reports a control's visibility; ok is false if it does not exist.
func (s *Session) ControlVisible(name string) (visible, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	visible, ok = s.controls[name]
	return visible, ok
}

// RequiredLevel reports an attribute's requirement level.
func (s *Session) RequiredLevel(name string) (ports.RequirementLevel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attributes[name]
	if !ok {
		return "", false
	}
	return a.required, true
}

// Value returns a copy of an attribute's value.
func (s *Session) Value(name string) *ports.Lookup {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.attributes[name]; ok {
		return a.value.Clone()
	}
	return nil
}

type attribute struct {
	session *Session
	name    string
}

func (a *attribute) Value() *ports.Lookup {
	return a.session.Value(a.name)
}

func (a *attribute) SetValue(value *ports.Lookup) {
	s := a.session
	s.mu.Lock()
	state, ok := s.attributes[a.name]
	if !ok {
		s.mu.Unlock()
		return
	}
	state.value = value.Clone()
	watchers := append([]func(*ports.Lookup){}, s.watchers[a.name]...)
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(value.Clone())
	}
}

func (a *attribute) SetRequiredLevel(level ports.RequirementLevel) {
	s := a.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.attributes[a.name]; ok {
		state.required = level
	}
}

type control struct {
	session *Session
	name    string
}

func (c *control) SetVisible(visible bool) {
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.controls[c.name]; ok {
		s.controls[c.name] = visible
	}
}
