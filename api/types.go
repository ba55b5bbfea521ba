package main

import (
	"time"

	"fieldrisk/api/analysis"
	"fieldrisk/api/render"
	"fieldrisk/api/roi"
	"fieldrisk/api/runlog"
)

// Request/response DTOs. Keep them minimal and explicit.

type sessionResp struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// eventReq is one raw drawing-toolkit or form event from the browser.
// Coordinates are in the toolkit's (lat, lng) order.
type eventReq struct {
	Type    string         `json:"type"`
	Shape   string         `json:"shape,omitempty"`
	LatLng  *roi.LatLng    `json:"latlng,omitempty"`  // marker position
	LatLngs [][]roi.LatLng `json:"latlngs,omitempty"` // polygon rings, outer first
	Lat     *float64       `json:"lat,omitempty"`
	Lng     *float64       `json:"lng,omitempty"`
}

// Event types accepted on /api/session/events.
const (
	evDrawCreated = "draw:created"
	evDrawEdited  = "draw:edited"
	evDrawDeleted = "draw:deleted"
	evDrawStart   = "draw:drawstart"
	evDrawStop    = "draw:drawstop"
	evClick       = "click"
	evGoto        = "goto"
)

type analyzeResp struct {
	Run   *analysis.Run `json:"run,omitempty"`
	View  render.View   `json:"view"`
	Error string        `json:"error,omitempty"`
}

// viewResp flattens the panel views and adds the last finished run.
type viewResp struct {
	render.View
	LastRun *analysis.Run `json:"last_run,omitempty"`
}

type windowReq struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type regionReq struct {
	FieldID *string `json:"field_id,omitempty"`
}

type saveSelectionReq struct {
	Name string `json:"name"`
}

type runsResp struct {
	Runs []runlog.Record `json:"runs"`
}

type errorResp struct {
	Error string `json:"error"`
}

type healthResp struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Sessions int    `json:"sessions"`
	Service  string `json:"analysis_service"`
}
