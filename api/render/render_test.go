package render

import (
	"math"
	"strings"
	"testing"

	"fieldrisk/api/models"
	"fieldrisk/api/roi"
)

func f(v float64) *float64 { return &v }

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestRiskViewMedium(t *testing.T) {
	v := RiskView(models.RiskAssessment{
		FinalLevel: "Orta",
		RuleBased: models.RuleBasedRisk{
			Score:   40,
			Factors: []string{"Düşük yağış"},
			ZScore:  f(1.2),
			Trend:   models.Trend{Direction: "artan"},
		},
	})
	if v.Category != RiskMedium {
		t.Errorf("category got %q, want medium", v.Category)
	}
	if v.ScoreText != "Risk Skoru: 40/100" {
		t.Errorf("score text got %q", v.ScoreText)
	}
	if len(v.Factors) != 1 || v.Factors[0] != "Düşük yağış" || v.NoFactors {
		t.Errorf("factors got %v (placeholder=%v)", v.Factors, v.NoFactors)
	}
	if v.ZLine != "Z-skoru: 1.20 | Trend: artan" {
		t.Errorf("z line got %q", v.ZLine)
	}
}

func TestRiskViewPlaceholderAndNoZ(t *testing.T) {
	v := RiskView(models.RiskAssessment{FinalLevel: "Düşük", RuleBased: models.RuleBasedRisk{Score: 5}})
	if v.Category != RiskLow {
		t.Errorf("category got %q", v.Category)
	}
	if !v.NoFactors || len(v.Factors) != 1 || v.Factors[0] != NoFactorsText {
		t.Errorf("factors got %v", v.Factors)
	}
	if v.ZLine != "" {
		t.Errorf("z line should be empty, got %q", v.ZLine)
	}
}

func TestCategoryFor(t *testing.T) {
	cases := map[string]RiskCategory{
		"Düşük":   RiskLow,
		"Orta":    RiskMedium,
		"Yüksek":  RiskHigh,
		"unknown": RiskHigh,
		"":        RiskHigh,
	}
	for in, want := range cases {
		if got := CategoryFor(in); got != want {
			t.Errorf("CategoryFor(%q) got %q, want %q", in, got, want)
		}
	}
}

func TestCurrentViewHealth(t *testing.T) {
	cases := []struct {
		ndvi float64
		want Health
	}{
		{0.15, HealthAlert},
		{0.35, HealthWarning},
		{0.55, HealthGood},
		{0.2, HealthWarning},
		{0.4, HealthGood},
	}
	for _, c := range cases {
		v := CurrentView(models.CurrentStatus{NDVIMean: f(c.ndvi)})
		if v.NDVIHealth != c.want {
			t.Errorf("ndvi %.2f got %q, want %q", c.ndvi, v.NDVIHealth, c.want)
		}
	}
}

func TestCurrentViewFormatting(t *testing.T) {
	d := date(t, "2024-03-05")
	v := CurrentView(models.CurrentStatus{NDVIMean: f(0.55432), NDMIMean: f(-0.1), Date: &d})
	if v.NDVI != "0.554" || v.NDMI != "-0.100" || v.Date != "05.03.2024" {
		t.Errorf("got %+v", v)
	}

	empty := CurrentView(models.CurrentStatus{})
	if empty.NDVI != Placeholder || empty.NDMI != Placeholder || empty.Date != Placeholder || empty.NDVIHealth != HealthUnknown {
		t.Errorf("missing values got %+v", empty)
	}
}

func TestChartView(t *testing.T) {
	points := []models.TimeseriesPoint{
		{Date: date(t, "2024-01-02"), NDVIMean: f(0.2), NDMIMean: f(0.1)},
		{Date: date(t, "2024-02-10"), NDVIMean: nil, NDMIMean: f(0.3)},
		{Date: date(t, "2024-08-31"), NDVIMean: f(0.6), NDMIMean: nil},
	}
	c := ChartView(points)
	if c.Empty {
		t.Fatalf("chart marked empty")
	}
	wantLabels := []string{"02 Oca", "10 Şub", "31 Ağu"}
	if strings.Join(c.Labels, ",") != strings.Join(wantLabels, ",") {
		t.Errorf("labels got %v, want %v", c.Labels, wantLabels)
	}
	if len(c.Series) != 2 || c.Series[0].Name != "NDVI" || c.Series[1].Name != "NDMI" {
		t.Fatalf("series got %+v", c.Series)
	}
	if c.Series[0].Values[1] != nil {
		t.Errorf("missing NDVI should stay a gap")
	}
	if c.YAxis != (Axis{Min: -0.5, Max: 1, Step: 0.25}) {
		t.Errorf("axis got %+v", c.YAxis)
	}

	ndvi := c.Summary["NDVI"]
	if ndvi.Count != 2 || math.Abs(ndvi.Mean-0.4) > 1e-9 || ndvi.Min != 0.2 || ndvi.Max != 0.6 || ndvi.Latest != 0.6 {
		t.Errorf("NDVI summary got %+v", ndvi)
	}
}

func TestChartViewEmpty(t *testing.T) {
	c := ChartView(nil)
	if !c.Empty || c.Title != EmptyChartTitle || len(c.Series) != 2 {
		t.Fatalf("empty chart got %+v", c)
	}
}

func TestPanelSelectionAndBusy(t *testing.T) {
	p := NewPanel()
	if v := p.Snapshot(); v.Coordinates != roi.NoSelectionText || v.AnalyzeEnabled {
		t.Fatalf("initial view got %+v", v)
	}

	r, _ := roi.NewPoint(39.5, 32.8)
	p.SelectionChanged(r)
	v := p.Snapshot()
	if v.Coordinates != "Nokta: 39.50000, 32.80000" || !v.AnalyzeEnabled {
		t.Errorf("after select got %+v", v)
	}

	var hooked []bool
	p.OnBusy(func(on bool) { hooked = append(hooked, on) })
	p.Notify("old error")
	p.SetBusy(true)
	v = p.Snapshot()
	if !v.Loading || v.AnalyzeEnabled || v.Error != "" {
		t.Errorf("busy view got %+v", v)
	}
	p.SetBusy(false)
	if v = p.Snapshot(); v.Loading || !v.AnalyzeEnabled {
		t.Errorf("idle view got %+v", v)
	}
	if len(hooked) != 2 || !hooked[0] || hooked[1] {
		t.Errorf("busy hook got %v", hooked)
	}

	p.SelectionChanged(roi.Empty)
	if v = p.Snapshot(); v.AnalyzeEnabled || v.Coordinates != roi.NoSelectionText {
		t.Errorf("after clear got %+v", v)
	}
}

func TestPanelRecentreIsConsumed(t *testing.T) {
	p := NewPanel()
	p.Recentre(roi.Viewport{Center: roi.LatLng{Lat: 39.5, Lng: 32.8}, Zoom: roi.GotoZoom})
	if v := p.Snapshot(); v.Recentre == nil || v.Recentre.Zoom != roi.GotoZoom {
		t.Fatalf("recentre got %+v", v.Recentre)
	}
	if v := p.Snapshot(); v.Recentre != nil {
		t.Fatalf("recentre should be consumed")
	}
}

func TestPanelKeepsRiskAfterFailure(t *testing.T) {
	p := NewPanel()
	p.UpdateRisk(models.RiskAssessment{FinalLevel: "Yüksek", RuleBased: models.RuleBasedRisk{Score: 80}})
	p.Notify("timeout")
	v := p.Snapshot()
	if v.Risk == nil || v.Risk.Category != RiskHigh {
		t.Errorf("risk got %+v", v.Risk)
	}
	if v.Error != "timeout" || v.ErrorAt == nil {
		t.Errorf("error got %q at %v", v.Error, v.ErrorAt)
	}
}
