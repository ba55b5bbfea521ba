package render

import (
	"fieldrisk/api/models"

	"github.com/montanaflynn/stats"
)

// Fixed y-axis range for both index series.
const (
	AxisMin  = -0.5
	AxisMax  = 1.0
	AxisStep = 0.25
)

// EmptyChartTitle labels the chart before any analysis.
const EmptyChartTitle = "Analiz için tarla seçin"

// Series is one line of the chart. Nil entries are gaps.
type Series struct {
	Name   string     `json:"name"`
	Color  string     `json:"color"`
	Values []*float64 `json:"values"`
}

// Axis is the fixed y-axis.
type Axis struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// SeriesSummary aggregates the non-missing values of one series.
type SeriesSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Latest float64 `json:"latest"`
}

// Chart is the time-series display: two series keyed by date labels.
type Chart struct {
	Title   string                   `json:"title,omitempty"`
	Labels  []string                 `json:"labels"`
	Series  []Series                 `json:"series"`
	YAxis   Axis                     `json:"y_axis"`
	Summary map[string]SeriesSummary `json:"summary,omitempty"`
	Empty   bool                     `json:"empty"`
}

const (
	ndviColor = "#22c55e"
	ndmiColor = "#3b82f6"
)

func fixedAxis() Axis { return Axis{Min: AxisMin, Max: AxisMax, Step: AxisStep} }

// EmptyChart is shown until an analysis produces points.
func EmptyChart() Chart {
	return Chart{
		Title:  EmptyChartTitle,
		Labels: []string{},
		Series: []Series{
			{Name: "NDVI", Color: ndviColor, Values: []*float64{}},
			{Name: "NDMI", Color: ndmiColor, Values: []*float64{}},
		},
		YAxis: fixedAxis(),
		Empty: true,
	}
}

// ChartView builds the chart for points, which arrive ascending by date.
func ChartView(points []models.TimeseriesPoint) Chart {
	if len(points) == 0 {
		return EmptyChart()
	}
	c := Chart{
		Labels: make([]string, len(points)),
		YAxis:  fixedAxis(),
	}
	ndvi := make([]*float64, len(points))
	ndmi := make([]*float64, len(points))
	for i, p := range points {
		c.Labels[i] = ChartLabel(p.Date)
		ndvi[i] = p.NDVIMean
		ndmi[i] = p.NDMIMean
	}
	c.Series = []Series{
		{Name: "NDVI", Color: ndviColor, Values: ndvi},
		{Name: "NDMI", Color: ndmiColor, Values: ndmi},
	}

	c.Summary = make(map[string]SeriesSummary, 2)
	for _, s := range c.Series {
		if sum, ok := summarize(s.Values); ok {
			c.Summary[s.Name] = sum
		}
	}
	return c
}

func summarize(values []*float64) (SeriesSummary, bool) {
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if v != nil {
			data = append(data, *v)
		}
	}
	if len(data) == 0 {
		return SeriesSummary{}, false
	}
	mean, err := data.Mean()
	if err != nil {
		return SeriesSummary{}, false
	}
	lo, _ := data.Min()
	hi, _ := data.Max()
	return SeriesSummary{
		Count:  len(data),
		Mean:   mean,
		Min:    lo,
		Max:    hi,
		Latest: data[len(data)-1],
	}, true
}
