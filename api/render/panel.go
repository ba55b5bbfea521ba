package render

import (
	"sync"
	"time"

	"fieldrisk/api/models"
	"fieldrisk/api/roi"
)

// View is everything the browser needs to repaint the dashboard.
type View struct {
	Coordinates    string        `json:"coordinates"`
	ROI            roi.ROI       `json:"roi"`
	AreaHectares   float64       `json:"area_ha,omitempty"`
	AnalyzeEnabled bool          `json:"analyze_enabled"`
	Loading        bool          `json:"loading"`
	Risk           *RiskPanel    `json:"risk,omitempty"`
	Current        *CurrentPanel `json:"current,omitempty"`
	Chart          Chart         `json:"chart"`
	Error          string        `json:"error,omitempty"`
	ErrorAt        *time.Time    `json:"error_at,omitempty"`
	Recentre       *roi.Viewport `json:"recentre,omitempty"`
}

// Panel holds the latest views for one session. It is the render target of
// the analysis pipeline and a subscriber of the selection machine. Safe for
// concurrent use.
type Panel struct {
	mu     sync.RWMutex
	view   View
	now    func() time.Time
	onBusy func(bool)
}

// NewPanel returns a panel showing the empty selection and empty chart.
func NewPanel() *Panel {
	return &Panel{
		view: View{
			Coordinates: roi.NoSelectionText,
			ROI:         roi.Empty,
			Chart:       EmptyChart(),
		},
		now: time.Now,
	}
}

// OnBusy registers a hook called on every indicator change.
func (p *Panel) OnBusy(fn func(bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onBusy = fn
}

// SelectionChanged is the selection subscriber: it refreshes the coordinates
// text and the analyze action.
func (p *Panel) SelectionChanged(r roi.ROI) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.ROI = r
	p.view.Coordinates = roi.Describe(r)
	p.view.AreaHectares = roi.AreaHectares(r)
	p.view.AnalyzeEnabled = !r.IsEmpty() && !p.view.Loading
}

// Recentre records a map recentring request for the browser to apply.
func (p *Panel) Recentre(vp roi.Viewport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.Recentre = &vp
}

func (p *Panel) UpdateRisk(a models.RiskAssessment) {
	v := RiskView(a)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.Risk = &v
}

func (p *Panel) UpdateCurrent(c models.CurrentStatus) {
	v := CurrentView(c)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.Current = &v
}

func (p *Panel) UpdateChart(points []models.TimeseriesPoint) {
	c := ChartView(points)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view.Chart = c
}

// Notify records a user-facing error message.
func (p *Panel) Notify(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	at := p.now().UTC()
	p.view.Error = msg
	p.view.ErrorAt = &at
}

// SetBusy drives the loading indicator; the analyze action is disabled while
// it is on.
func (p *Panel) SetBusy(on bool) {
	p.mu.Lock()
	p.view.Loading = on
	p.view.AnalyzeEnabled = !on && !p.view.ROI.IsEmpty()
	if on {
		p.view.Error = ""
		p.view.ErrorAt = nil
	}
	hook := p.onBusy
	p.mu.Unlock()

	if hook != nil {
		hook(on)
	}
}

// Snapshot returns a copy of the current view. The recentre request is
// consumed by the read.
func (p *Panel) Snapshot() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.view
	if v.Risk != nil {
		r := *v.Risk
		r.Factors = append([]string(nil), r.Factors...)
		v.Risk = &r
	}
	if v.Current != nil {
		c := *v.Current
		v.Current = &c
	}
	p.view.Recentre = nil
	return v
}

// Peek is Snapshot without consuming the recentre request.
func (p *Panel) Peek() View {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.view
}
