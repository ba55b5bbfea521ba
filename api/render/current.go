package render

import "fieldrisk/api/models"

// Health is the NDVI color class.
type Health string

const (
	HealthAlert   Health = "alert"
	HealthWarning Health = "warning"
	HealthGood    Health = "healthy"
	HealthUnknown Health = ""
)

// NDVI thresholds for the color classes.
const (
	AlertBelow   = 0.2
	WarningBelow = 0.4
)

// HealthFor classifies an NDVI value. nil has no class.
func HealthFor(ndvi *float64) Health {
	switch {
	case ndvi == nil:
		return HealthUnknown
	case *ndvi < AlertBelow:
		return HealthAlert
	case *ndvi < WarningBelow:
		return HealthWarning
	default:
		return HealthGood
	}
}

// CurrentPanel is the current-values display.
type CurrentPanel struct {
	NDVI       string `json:"ndvi"`
	NDVIHealth Health `json:"ndvi_health,omitempty"`
	NDMI       string `json:"ndmi"`
	Date       string `json:"date"`
}

// CurrentView builds the current-values display for c.
func CurrentView(c models.CurrentStatus) CurrentPanel {
	return CurrentPanel{
		NDVI:       FormatIndex(c.NDVIMean),
		NDVIHealth: HealthFor(c.NDVIMean),
		NDMI:       FormatIndex(c.NDMIMean),
		Date:       FormatDate(c.Date),
	}
}
