package models

// Trend is the recent-slope summary the service attaches to risk and
// analyze responses.
type Trend struct {
	Slope      float64 `json:"slope"`
	Direction  string  `json:"direction"` // increasing | decreasing | stable | insufficient_data
	Confidence float64 `json:"confidence"`
}

// RuleBasedRisk is the deterministic part of the assessment.
type RuleBasedRisk struct {
	Score   int      `json:"score"` // 0..100
	Level   string   `json:"level,omitempty"`
	Factors []string `json:"factors"`
	ZScore  *float64 `json:"z_score"` // null when no baseline week matched
	Trend   Trend    `json:"trend"`
}

// MLPrediction is present only when the service has a trained model.
type MLPrediction struct {
	Class         int                `json:"class"`
	Level         string             `json:"level"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
}

// Risk levels as the service spells them.
const (
	LevelLow    = "Düşük"
	LevelMedium = "Orta"
	LevelHigh   = "Yüksek"
)

// RiskAssessment is the "risk" object of a risk response.
type RiskAssessment struct {
	FinalLevel   string        `json:"final_level"`
	RuleBased    RuleBasedRisk `json:"rule_based"`
	MLPrediction *MLPrediction `json:"ml_prediction,omitempty"`
	Timestamp    string        `json:"timestamp,omitempty"`
}

// CurrentStatus is the most recent clear observation for a region.
type CurrentStatus struct {
	NDVIMean        *float64 `json:"ndvi_mean"`
	NDMIMean        *float64 `json:"ndmi_mean"`
	Date            *Date    `json:"date"`
	ClearPixelRatio *float64 `json:"clear_pixel_ratio,omitempty"`
	CloudPercentage *float64 `json:"cloud_percentage,omitempty"`
}

// RiskResponse is the body of POST /risk.
type RiskResponse struct {
	Success bool           `json:"success"`
	Risk    RiskAssessment `json:"risk"`
	Current CurrentStatus  `json:"current"`
}

// CurrentResponse is the body of POST /current.
type CurrentResponse struct {
	Success bool          `json:"success"`
	Data    CurrentStatus `json:"data"`
}

// BaselineWeek holds per-ISO-week statistics over the baseline years.
type BaselineWeek struct {
	Week        int     `json:"week"`
	NDVIMu      float64 `json:"ndvi_mu"`
	NDVISigma   float64 `json:"ndvi_sigma"`
	NDMIMu      float64 `json:"ndmi_mu"`
	NDMISigma   float64 `json:"ndmi_sigma"`
	SampleCount int     `json:"sample_count"`
}

// FallowPeriod is a run of low-NDVI weeks the baseline excluded.
type FallowPeriod struct {
	Year          int `json:"year"`
	StartWeek     int `json:"start_week"`
	EndWeek       int `json:"end_week"`
	DurationWeeks int `json:"duration_weeks"`
}

// Baseline is the historical reference computed server side.
type Baseline struct {
	Weeks         []BaselineWeek `json:"baseline"`
	FallowPeriods []FallowPeriod `json:"nadas_periods"`
	TotalSamples  int            `json:"total_samples"`
	YearsUsed     []int          `json:"years_used"`
}

// BaselineResponse is the body of POST /baseline.
type BaselineResponse struct {
	Success  bool     `json:"success"`
	Baseline Baseline `json:"baseline"`
}
