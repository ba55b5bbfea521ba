// Package session holds the per-browser application context: one selection
// machine, one orchestrator and one panel, built together and passed to
// collaborators by reference.
package session

import (
	"context"
	"sync"
	"time"

	"fieldrisk/api/analysis"
	"fieldrisk/api/logging"
	"fieldrisk/api/render"
	"fieldrisk/api/selection"
)

// ObserverFactory builds the run observers for one session.
type ObserverFactory func(sessionID string) []analysis.RunObserver

// Wiring is shared by every context a Store builds.
type Wiring struct {
	Service   analysis.RiskService
	Logger    logging.Logger
	Clock     func() time.Time
	EventHook func(name string)
	BusyHook  func(bool)
	Observers ObserverFactory
}

// Context is one session's application state.
type Context struct {
	ID           string
	Selection    *selection.Machine
	Orchestrator *analysis.Orchestrator
	Panel        *render.Panel

	createdAt time.Time
	mu        sync.Mutex
	lastSeen  time.Time
	unsub     func()
}

// NewContext wires a fresh context in the Empty selection state.
func NewContext(id string, w Wiring) *Context {
	log := w.Logger
	if log == nil {
		log = logging.Noop()
	}
	log = log.With(logging.String("session_id", id))
	now := w.Clock
	if now == nil {
		now = time.Now
	}

	panel := render.NewPanel()
	if w.BusyHook != nil {
		panel.OnBusy(w.BusyHook)
	}

	machine := selection.New(
		selection.WithLogger(log),
		selection.WithRecentrer(panel.Recentre),
		selection.WithEventHook(w.EventHook),
	)

	opts := []analysis.Option{analysis.WithLogger(log), analysis.WithClock(now)}
	if w.Observers != nil {
		for _, obs := range w.Observers(id) {
			opts = append(opts, analysis.WithObserver(obs))
		}
	}
	orch := analysis.New(machine, w.Service, analysis.Displays{
		Risk:      panel,
		Current:   panel,
		Chart:     panel,
		Notifier:  panel,
		Indicator: panel,
	}, opts...)

	t := now()
	return &Context{
		ID:           id,
		Selection:    machine,
		Orchestrator: orch,
		Panel:        panel,
		createdAt:    t,
		lastSeen:     t,
		unsub:        machine.Subscribe(panel.SelectionChanged),
	}
}

// Apply forwards one selection event to the machine.
func (c *Context) Apply(ctx context.Context, ev selection.Event) error {
	return c.Selection.Apply(ctx, ev)
}

// View returns the panel snapshot with the analyze action reflecting both
// the selection and the orchestrator.
func (c *Context) View() render.View {
	v := c.Panel.Snapshot()
	v.AnalyzeEnabled = c.Selection.AnalyzeEnabled() && !c.Orchestrator.Busy()
	return v
}

// CreatedAt is when the context was built.
func (c *Context) CreatedAt() time.Time { return c.createdAt }

func (c *Context) touch(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen = t
}

func (c *Context) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

func (c *Context) close() {
	if c.unsub != nil {
		c.unsub()
	}
}
