package analysis

import (
	"time"

	"fieldrisk/api/models"
	"fieldrisk/api/roi"
)

// State is the lifecycle position of a Run.
type State int

const (
	Idle State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// MarshalText lets State appear as a word in JSON.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Window is the trailing date range the time-series step asks for.
type Window struct {
	Start models.Date `json:"start"`
	End   models.Date `json:"end"`
}

// TrailingYear returns [today-365d, today] for the UTC date of now.
func TrailingYear(now time.Time) Window {
	end := models.DateOf(now)
	return Window{Start: end.AddDays(-365), End: end}
}

// Run is one invocation of the pipeline. ROI is the region as it was when
// the run started; later selection changes do not affect it.
type Run struct {
	ID         string    `json:"id"`
	ROI        roi.ROI   `json:"roi"`
	State      State     `json:"state"`
	Window     Window    `json:"window"`
	Err        error     `json:"-"`
	Message    string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Duration is zero until the run finishes.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
