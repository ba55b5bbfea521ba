// Package selection owns the single live region of interest and the rules
// for replacing it.
//
// All transitions run to completion under one lock, and subscribers are
// notified inside that critical section. Subscribers must not call back into
// the Machine.
package selection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fieldrisk/api/logging"
	"fieldrisk/api/roi"
)

// ErrNothingToEdit is returned for DrawEdited while no region is selected.
var ErrNothingToEdit = errors.New("selection: no region to edit")

// Listener receives the region after every transition (roi.Empty included).
type Listener func(roi.ROI)

// Option configures a Machine.
type Option func(*Machine)

// WithRecentrer installs the hook that receives map recentring requests.
func WithRecentrer(fn func(roi.Viewport)) Option {
	return func(m *Machine) { m.recentre = fn }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

// WithEventHook is called with Event.Name() for every applied event.
func WithEventHook(fn func(name string)) Option {
	return func(m *Machine) { m.onEvent = fn }
}

type subscription struct {
	id int
	fn Listener
}

// Machine is the region selection state machine. States are Empty and
// HasROI; there is no terminal state.
type Machine struct {
	mu      sync.Mutex
	current roi.ROI
	drawing bool
	subs    []subscription
	nextID  int

	recentre func(roi.Viewport)
	onEvent  func(string)
	log      logging.Logger
}

// New returns a Machine in the Empty state.
func New(opts ...Option) *Machine {
	m := &Machine{log: logging.Noop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the live region. roi.ROI is a value; callers get a snapshot.
func (m *Machine) Current() roi.ROI {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// AnalyzeEnabled reports whether the analyze action should be offered.
func (m *Machine) AnalyzeEnabled() bool {
	return !m.Current().IsEmpty()
}

// Drawing reports whether the toolkit is in drawing mode.
func (m *Machine) Drawing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drawing
}

// SetDrawMode records the toolkit's drawing mode. Map clicks are ignored
// while it is on.
func (m *Machine) SetDrawMode(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drawing = on
}

// Subscribe registers fn and returns a function that removes it.
func (m *Machine) Subscribe(fn Listener) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, subscription{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// ClearAll forces Empty. It is idempotent and always notifies.
func (m *Machine) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(roi.Empty)
}

// Apply consumes one event. On error the state is unchanged.
func (m *Machine) Apply(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.onEvent != nil {
		m.onEvent(ev.Name())
	}

	switch e := ev.(type) {
	case DrawCreated:
		next, err := roi.FromGeometry(e.Shape, e.Geometry)
		if err != nil {
			return fmt.Errorf("draw created: %w", err)
		}
		m.setLocked(next)

	case DrawEdited:
		if m.current.IsEmpty() {
			return ErrNothingToEdit
		}
		shape := e.Shape
		if shape == "" {
			shape = shapeOf(m.current)
		}
		next, err := roi.FromGeometry(shape, e.Geometry)
		if err != nil {
			return fmt.Errorf("draw edited: %w", err)
		}
		m.setLocked(next)

	case DrawDeleted:
		m.setLocked(roi.Empty)

	case MapClicked:
		if m.drawing {
			m.log.Debug(ctx, "map click ignored while drawing")
			return nil
		}
		next, err := roi.NewPoint(e.Lat, e.Lng)
		if err != nil {
			return fmt.Errorf("map click: %w", err)
		}
		m.setLocked(next)

	case GotoRequested:
		next, err := roi.NewPoint(e.Lat, e.Lng)
		if err != nil {
			return fmt.Errorf("goto: %w", err)
		}
		if m.recentre != nil {
			p, _ := next.Point()
			m.recentre(roi.Viewport{Center: roi.LatLng{Lat: p.Lat(), Lng: p.Lon()}, Zoom: roi.GotoZoom})
		}
		m.setLocked(next)

	default:
		return fmt.Errorf("selection: unknown event %T", ev)
	}

	m.log.Debug(ctx, "selection changed",
		logging.String("event", ev.Name()),
		logging.String("kind", m.current.Kind().String()),
		logging.Int("vertices", m.current.Vertices()),
	)
	return nil
}

// shapeOf names the toolkit layer that drew r. Edit events carry no layer
// type, so the kind of the edited region stands in for it.
func shapeOf(r roi.ROI) roi.Shape {
	if r.Kind() == roi.KindPoint {
		return roi.ShapeMarker
	}
	return roi.ShapePolygon
}

// setLocked replaces the region and notifies. A new region always replaces
// the previous one, so "clear prior shape" needs no separate step.
func (m *Machine) setLocked(next roi.ROI) {
	m.current = next
	for _, s := range m.subs {
		s.fn(next)
	}
}
