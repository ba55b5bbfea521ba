package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"fieldrisk/api/analysis"
	"fieldrisk/api/models"
	"fieldrisk/api/roi"
	"fieldrisk/api/selection"
)

type stubService struct{}

func (stubService) Risk(context.Context, roi.ROI, *string) (*models.RiskResponse, error) {
	return &models.RiskResponse{Success: true, Risk: models.RiskAssessment{FinalLevel: models.LevelHigh}}, nil
}

func (stubService) Analyze(context.Context, roi.ROI, models.Date, models.Date) (*models.AnalyzeResponse, error) {
	d, _ := models.ParseDate("2024-06-01")
	v := 0.5
	return &models.AnalyzeResponse{Success: true, Timeseries: []models.TimeseriesPoint{{Date: d, NDVIMean: &v}}}, nil
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type nopObserver struct{ id string }

func (nopObserver) RunStarted(context.Context, analysis.Run)  {}
func (nopObserver) RunFinished(context.Context, analysis.Run) {}
func (nopObserver) RunRejected(context.Context, error)        {}

func TestContextEndToEnd(t *testing.T) {
	var events []string
	c := NewContext("s1", Wiring{
		Service:   stubService{},
		EventHook: func(name string) { events = append(events, name) },
	})

	if v := c.View(); v.AnalyzeEnabled {
		t.Fatalf("analyze enabled with no region")
	}

	if err := c.Apply(context.Background(), selection.GotoRequested{Lat: 39.5, Lng: 32.8}); err != nil {
		t.Fatalf("goto: %v", err)
	}
	v := c.View()
	if !v.AnalyzeEnabled || v.Coordinates != "Nokta: 39.50000, 32.80000" {
		t.Errorf("after goto got %+v", v)
	}
	if v.Recentre == nil || v.Recentre.Zoom != roi.GotoZoom {
		t.Errorf("recentre got %+v", v.Recentre)
	}

	run, err := c.Orchestrator.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.State != analysis.Succeeded {
		t.Errorf("state got %v", run.State)
	}
	v = c.View()
	if v.Risk == nil || v.Risk.Category != "high" || v.Chart.Empty || v.Loading {
		t.Errorf("after run got %+v", v)
	}

	c.Selection.ClearAll()
	if v = c.View(); v.AnalyzeEnabled || v.Coordinates != roi.NoSelectionText {
		t.Errorf("after clear got %+v", v)
	}
	if len(events) != 1 || events[0] != "goto_requested" {
		t.Errorf("event hook got %v", events)
	}
}

func TestStoreCreateGetDelete(t *testing.T) {
	var counts []int
	s := NewStore(Wiring{Service: stubService{}}, WithCountHook(func(n int) { counts = append(counts, n) }))

	a := s.Create()
	b := s.Create()
	if a.ID == b.ID {
		t.Fatalf("duplicate session ids")
	}
	if got, ok := s.Get(a.ID); !ok || got != a {
		t.Fatalf("Get(a) got %v, %v", got, ok)
	}
	s.Delete(a.ID)
	s.Delete(a.ID)
	if _, ok := s.Get(a.ID); ok {
		t.Errorf("deleted session still present")
	}
	if s.Len() != 1 {
		t.Errorf("Len got %d", s.Len())
	}
	if len(counts) != 3 || counts[2] != 1 {
		t.Errorf("count hook got %v", counts)
	}
}

func TestStoreSweepEvictsIdle(t *testing.T) {
	clock := &manualClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(Wiring{Service: stubService{}, Clock: clock.Now}, WithTTL(time.Hour))

	stale := s.Create()
	fresh := s.Create()

	clock.Advance(50 * time.Minute)
	s.Get(fresh.ID)
	clock.Advance(20 * time.Minute)

	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep evicted %d, want 1", n)
	}
	if _, ok := s.Get(stale.ID); ok {
		t.Errorf("stale session survived")
	}
	if _, ok := s.Get(fresh.ID); !ok {
		t.Errorf("fresh session evicted")
	}
}

func TestObserverFactoryGetsSessionID(t *testing.T) {
	var ids []string
	s := NewStore(Wiring{
		Service: stubService{},
		Observers: func(id string) []analysis.RunObserver {
			ids = append(ids, id)
			return []analysis.RunObserver{nopObserver{id: id}}
		},
	})
	c := s.Create()
	if len(ids) != 1 || ids[0] != c.ID {
		t.Fatalf("factory got %v, want [%s]", ids, c.ID)
	}
}

func TestStoreRunStopsOnCancel(t *testing.T) {
	s := NewStore(Wiring{Service: stubService{}})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, 10*time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
}
