package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"fieldrisk/api/analysis"
	"fieldrisk/api/logging"
	"fieldrisk/api/models"
	"fieldrisk/api/riskclient"
	"fieldrisk/api/roi"
	"fieldrisk/api/runlog"
	"fieldrisk/api/selection"
)

// handleCreateSession starts a dashboard session and returns its token.
func (a *App) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sc := a.sessions.Create()
	token, err := signSessionToken(a.cfg.SessionSecret, sc.ID, a.cfg.SessionTTL)
	if err != nil {
		a.sessions.Delete(sc.ID)
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}
	a.log.Info(r.Context(), "session created", logging.String("session_id", sc.ID))
	writeJSON(w, http.StatusCreated, sessionResp{
		Token:     token,
		SessionID: sc.ID,
		ExpiresAt: time.Now().Add(a.cfg.SessionTTL).UTC(),
	})
}

// handleEndSession drops the caller's session.
func (a *App) handleEndSession(w http.ResponseWriter, r *http.Request) {
	a.sessions.Delete(mustSession(r).ID)
	w.WriteHeader(http.StatusNoContent)
}

// handleEvent translates one toolkit event and applies it. The response is
// the refreshed view.
func (a *App) handleEvent(w http.ResponseWriter, r *http.Request) {
	sc := mustSession(r)

	var req eventReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	switch req.Type {
	case evDrawStart:
		sc.Selection.SetDrawMode(true)
	case evDrawStop:
		sc.Selection.SetDrawMode(false)
	default:
		ev, err := toEvent(req)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		if err := sc.Apply(r.Context(), ev); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, sc.View())
}

// toEvent is the translation boundary: the event's variant is decided here
// from its declared type, never from the shape of its coordinates.
func toEvent(req eventReq) (selection.Event, error) {
	geometry := roi.Geometry{Point: req.LatLng, Rings: req.LatLngs}
	switch req.Type {
	case evDrawCreated:
		return selection.DrawCreated{Shape: roi.Shape(req.Shape), Geometry: geometry}, nil
	case evDrawEdited:
		return selection.DrawEdited{Shape: roi.Shape(req.Shape), Geometry: geometry}, nil
	case evDrawDeleted:
		return selection.DrawDeleted{}, nil
	case evClick:
		if req.Lat == nil || req.Lng == nil {
			return nil, roi.Invalidf("click needs lat and lng")
		}
		return selection.MapClicked{Lat: *req.Lat, Lng: *req.Lng}, nil
	case evGoto:
		if req.Lat == nil || req.Lng == nil {
			return nil, roi.Invalidf("Lütfen geçerli koordinatlar girin")
		}
		return selection.GotoRequested{Lat: *req.Lat, Lng: *req.Lng}, nil
	default:
		return nil, roi.Invalidf("unknown event type %q", req.Type)
	}
}

// handleClear forces the selection back to empty.
func (a *App) handleClear(w http.ResponseWriter, r *http.Request) {
	sc := mustSession(r)
	sc.Selection.ClearAll()
	writeJSON(w, http.StatusOK, sc.View())
}

// handleView returns the dashboard views plus the last finished run.
func (a *App) handleView(w http.ResponseWriter, r *http.Request) {
	sc := mustSession(r)
	resp := viewResp{View: sc.View()}
	if run, ok := sc.Orchestrator.Last(); ok {
		resp.LastRun = &run
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAnalyze runs the pipeline for the current selection. Display updates
// made before a failure are part of the returned view.
func (a *App) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sc := mustSession(r)

	run, err := sc.Orchestrator.Run(r.Context())
	resp := analyzeResp{View: sc.View()}
	if run.ID != "" {
		resp.Run = &run
	}
	if err != nil {
		resp.Error = riskclient.UserMessage(err)
		writeJSON(w, statusFor(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBaseline asks the service for the historical baseline of the
// current selection.
func (a *App) handleBaseline(w http.ResponseWriter, r *http.Request) {
	sc := mustSession(r)

	var req regionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	resp, err := a.client.Baseline(r.Context(), sc.Selection.Current(), req.FieldID)
	if err != nil {
		writeError(w, statusFor(err), riskclient.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCurrent returns the latest clear observation for the selection.
func (a *App) handleCurrent(w http.ResponseWriter, r *http.Request) {
	sc := mustSession(r)
	resp, err := a.client.Current(r.Context(), sc.Selection.Current())
	if err != nil {
		writeError(w, statusFor(err), riskclient.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTimeseries returns the raw observations for the selection. The
// window defaults to the trailing year.
func (a *App) handleTimeseries(w http.ResponseWriter, r *http.Request) {
	sc := mustSession(r)

	var req windowReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	window := analysis.TrailingYear(time.Now())
	if req.StartDate != "" || req.EndDate != "" {
		start, err := models.ParseDate(req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_date: "+err.Error())
			return
		}
		end, err := models.ParseDate(req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end_date: "+err.Error())
			return
		}
		window = analysis.Window{Start: start, End: end}
	}

	resp, err := a.client.Timeseries(r.Context(), sc.Selection.Current(), window.Start, window.End)
	if err != nil {
		writeError(w, statusFor(err), riskclient.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRuns lists this session's journaled runs, newest first.
func (a *App) handleRuns(w http.ResponseWriter, r *http.Request) {
	sc := mustSession(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := a.journal.List(r.Context(), sc.ID, limit)
	if err != nil {
		a.log.Error(r.Context(), "list runs", logging.Err(err))
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []runlog.Record{}
	}
	writeJSON(w, http.StatusOK, runsResp{Runs: runs})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResp{
		Status:   "ok",
		Uptime:   time.Since(a.started).Round(time.Second).String(),
		Sessions: a.sessions.Len(),
		Service:  a.client.BaseURL(),
	})
}

// statusFor maps the error taxonomy onto HTTP.
func statusFor(err error) int {
	var rse *riskclient.RemoteServiceError
	var te *riskclient.TransportError
	switch {
	case roi.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrRunInProgress), errors.Is(err, selection.ErrNothingToEdit):
		return http.StatusConflict
	case errors.As(err, &rse):
		if rse.Status == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.As(err, &te):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResp{Error: msg})
}
