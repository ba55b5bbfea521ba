package render

import (
	"fmt"

	"fieldrisk/api/models"
)

// RiskCategory is the visual class of a risk level.
type RiskCategory string

const (
	RiskLow    RiskCategory = "low"
	RiskMedium RiskCategory = "medium"
	RiskHigh   RiskCategory = "high"
)

// NoFactorsText replaces an empty factor list.
const NoFactorsText = "Herhangi bir risk faktörü tespit edilmedi"

// CategoryFor maps a service risk level to its visual class. Anything the
// service may add later renders as high.
func CategoryFor(level string) RiskCategory {
	switch level {
	case models.LevelLow:
		return RiskLow
	case models.LevelMedium:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// RiskPanel is the risk display.
type RiskPanel struct {
	Level     string       `json:"level"`
	Category  RiskCategory `json:"category"`
	ScoreText string       `json:"score_text"`
	Factors   []string     `json:"factors"`
	NoFactors bool         `json:"no_factors"`
	ZLine     string       `json:"z_line,omitempty"`
	MLLevel   string       `json:"ml_level,omitempty"`
}

// RiskView builds the risk display for a.
func RiskView(a models.RiskAssessment) RiskPanel {
	p := RiskPanel{
		Level:     a.FinalLevel,
		Category:  CategoryFor(a.FinalLevel),
		ScoreText: fmt.Sprintf("Risk Skoru: %d/100", a.RuleBased.Score),
	}
	if len(a.RuleBased.Factors) == 0 {
		p.Factors = []string{NoFactorsText}
		p.NoFactors = true
	} else {
		p.Factors = append([]string(nil), a.RuleBased.Factors...)
	}
	if z := a.RuleBased.ZScore; z != nil {
		p.ZLine = fmt.Sprintf("Z-skoru: %.2f | Trend: %s", *z, a.RuleBased.Trend.Direction)
	}
	if a.MLPrediction != nil {
		p.MLLevel = a.MLPrediction.Level
	}
	return p
}
