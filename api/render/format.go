// Package render turns remote-service results into view models the browser
// paints without further logic: risk panel, current values, time-series
// chart.
//
// The baseline-comparison chart and the heatmap overlay are extension points
// with no behavior yet; nothing here produces views for them.
package render

import (
	"fmt"

	"fieldrisk/api/models"
)

// Placeholder is shown for any missing value.
const Placeholder = "-"

// DisplayDateLayout is the tr-TR numeric date form.
const DisplayDateLayout = "02.01.2006"

var shortMonths = [...]string{"Oca", "Şub", "Mar", "Nis", "May", "Haz", "Tem", "Ağu", "Eyl", "Eki", "Kas", "Ara"}

// FormatDate renders d as DD.MM.YYYY, or the placeholder for nil or zero.
func FormatDate(d *models.Date) string {
	if d == nil || d.IsZero() {
		return Placeholder
	}
	return d.Format(DisplayDateLayout)
}

// ChartLabel renders d as "02 Oca".
func ChartLabel(d models.Date) string {
	return fmt.Sprintf("%02d %s", d.Day(), shortMonths[d.Month()-1])
}

// FormatIndex renders an index value to 3 decimals, or the placeholder.
func FormatIndex(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return fmt.Sprintf("%.3f", *v)
}
