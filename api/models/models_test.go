package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDateForms(t *testing.T) {
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-03-15",
		"2024-03-15T10:20:30Z",
		"Fri, 15 Mar 2024 00:00:00 GMT",
		"2024-03-15T10:20:30",
	} {
		d, err := ParseDate(in)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", in, err)
			continue
		}
		if !d.Equal(want) {
			t.Errorf("ParseDate(%q) got %v, want %v", in, d.Time, want)
		}
	}
	if _, err := ParseDate("15/03/2024"); err == nil {
		t.Errorf("expected error for unsupported layout")
	}
}

func TestDateOfTruncatesToUTCDay(t *testing.T) {
	ist := time.FixedZone("TRT", 3*60*60)
	d := DateOf(time.Date(2024, 1, 1, 1, 30, 0, 0, ist))
	if d.String() != "2023-12-31" {
		t.Fatalf("got %s, want 2023-12-31", d)
	}
}

func TestRiskResponseDecodes(t *testing.T) {
	body := `{
		"success": true,
		"risk": {
			"final_level": "Orta",
			"rule_based": {"score": 40, "level": "Orta", "factors": ["Düşük yağış"], "z_score": 1.2,
				"trend": {"slope": 0.01, "direction": "artan", "confidence": 0.5}},
			"ml_prediction": null
		},
		"current": {"ndvi_mean": 0.35, "ndmi_mean": null, "date": "Fri, 15 Mar 2024 00:00:00 GMT"}
	}`
	var resp RiskResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Risk.FinalLevel != LevelMedium {
		t.Errorf("final level got %q", resp.Risk.FinalLevel)
	}
	if resp.Risk.RuleBased.ZScore == nil || *resp.Risk.RuleBased.ZScore != 1.2 {
		t.Errorf("z_score got %v", resp.Risk.RuleBased.ZScore)
	}
	if resp.Risk.MLPrediction != nil {
		t.Errorf("ml_prediction should be nil")
	}
	if resp.Current.NDMIMean != nil {
		t.Errorf("ndmi_mean should be nil")
	}
	if resp.Current.Date == nil || resp.Current.Date.String() != "2024-03-15" {
		t.Errorf("date got %v", resp.Current.Date)
	}
}

func TestDateMarshalsAsDay(t *testing.T) {
	d, _ := ParseDate("2024-03-15")
	b, err := json.Marshal(TimeseriesPoint{Date: d})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	_ = json.Unmarshal(b, &raw)
	if raw["date"] != "2024-03-15" {
		t.Fatalf("date got %v", raw["date"])
	}
}
