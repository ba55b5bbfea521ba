package models

// TimeseriesPoint is one satellite observation, ascending by date.
type TimeseriesPoint struct {
	Date            Date     `json:"date"`
	NDVIMean        *float64 `json:"ndvi_mean"`
	NDMIMean        *float64 `json:"ndmi_mean"`
	NDVIStd         *float64 `json:"ndvi_std,omitempty"`
	ClearPixelRatio *float64 `json:"clear_pixel_ratio,omitempty"`
	CloudPercentage *float64 `json:"cloud_percentage,omitempty"`
}

// DateRange bounds the observations in a summary.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// IndexSummary aggregates one index over the analyzed window.
type IndexSummary struct {
	Mean    *float64 `json:"mean"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Current *float64 `json:"current"`
}

// Summary is the aggregate block of an analyze response.
type Summary struct {
	TotalImages   int          `json:"total_images"`
	QualityImages int          `json:"quality_images"`
	DateRange     DateRange    `json:"date_range"`
	NDVI          IndexSummary `json:"ndvi"`
	NDMI          IndexSummary `json:"ndmi"`
}

// AnalyzeResponse is the body of POST /analyze.
type AnalyzeResponse struct {
	Success    bool              `json:"success"`
	Summary    *Summary          `json:"summary,omitempty"`
	Trend      *Trend            `json:"trend,omitempty"`
	Timeseries []TimeseriesPoint `json:"timeseries"`
}

// TimeseriesResponse is the body of POST /timeseries.
type TimeseriesResponse struct {
	Success bool              `json:"success"`
	Count   int               `json:"count"`
	Data    []TimeseriesPoint `json:"data"`
}

// WindowRequest carries a region and a YYYY-MM-DD window.
type WindowRequest struct {
	Coordinates any    `json:"coordinates"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// RegionRequest carries a region and an optional field id for baseline caching.
type RegionRequest struct {
	Coordinates any     `json:"coordinates"`
	FieldID     *string `json:"field_id,omitempty"`
}
