package page

import (
	"fmt"
	"strconv"
	"sync"
)

// Default render dimensions used when an element carries no explicit size.
const (
	DefaultWidth  = 140
	DefaultHeight = 140
)

// VisualState is the loading state of a managed image. States only move
// forward: Placeholder → Loading → {Loaded, Error}.
type VisualState int

const (
	// StatePlaceholder shows the synthetic placeholder before loading begins.
	StatePlaceholder VisualState = iota

	// StateLoading marks an image whose real fetch is in flight.
	StateLoading

	// StateLoaded is a terminal state: the real image is displayed.
	StateLoaded

	// StateError is a terminal state: the fetch failed or timed out and the
	// placeholder is displayed instead.
	StateError
)

// String returns the marker-style name of the state.
func (s VisualState) String() string {
	switch s {
	case StatePlaceholder:
		return "placeholder"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible from s.
func (s VisualState) Terminal() bool {
	return s == StateLoaded || s == StateError
}

// ErrInvalidTransition is wrapped by Transition when a state change would
// move backwards or leave a terminal state.
var ErrInvalidTransition = fmt.Errorf("invalid visual state transition")

// ManagedImage pairs a page element with its deferred source and visual
// state. The element reference is the image's identity; records are created
// once at scan time and live for the page session.
type ManagedImage struct {
	el             Element
	deferredSource string
	width          int
	height         int

	mu    sync.Mutex
	state VisualState
}

// NewManagedImage normalizes el into a managed image: the real URL is moved
// from src into the deferred-source attribute (unless already deferred) and
// dimensions default to 140×140. The deferred source is immutable afterwards.
func NewManagedImage(el Element) *ManagedImage {
	deferred := el.Attr(AttrDeferredSource)
	if deferred == "" {
		deferred = el.Source()
		el.SetAttr(AttrDeferredSource, deferred)
	}

	return &ManagedImage{
		el:             el,
		deferredSource: deferred,
		width:          dimensionAttr(el, "width", DefaultWidth),
		height:         dimensionAttr(el, "height", DefaultHeight),
		state:          StatePlaceholder,
	}
}

// Element returns the page element this image manages.
func (m *ManagedImage) Element() Element {
	return m.el
}

// DeferredSource returns the real image URL held back until admission.
func (m *ManagedImage) DeferredSource() string {
	return m.deferredSource
}

// Width returns the render width in pixels.
func (m *ManagedImage) Width() int {
	return m.width
}

// Height returns the render height in pixels.
func (m *ManagedImage) Height() int {
	return m.height
}

// State returns the current visual state.
func (m *ManagedImage) State() VisualState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transition advances the visual state. Only forward transitions are
// permitted; a terminal state never changes again. This is the guard that
// keeps a late-settling fetch from overwriting an already-applied outcome.
func (m *ManagedImage) Transition(next VisualState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	valid := false
	switch m.state {
	case StatePlaceholder:
		valid = next == StateLoading
	case StateLoading:
		valid = next == StateLoaded || next == StateError
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, next)
	}

	m.state = next
	return nil
}

// dimensionAttr parses a positive integer attribute, falling back to def.
func dimensionAttr(el Element, name string, def int) int {
	v, err := strconv.Atoi(el.Attr(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
