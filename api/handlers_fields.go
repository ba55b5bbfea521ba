package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"fieldrisk/api/logging"
	"fieldrisk/api/models"
	"fieldrisk/api/riskclient"

	"github.com/go-chi/chi/v5"
)

// handleListFields proxies the service's saved fields.
func (a *App) handleListFields(w http.ResponseWriter, r *http.Request) {
	fields, err := a.client.ListFields(r.Context())
	if err != nil {
		writeError(w, statusFor(err), riskclient.UserMessage(err))
		return
	}
	if fields == nil {
		fields = []models.Field{}
	}
	writeJSON(w, http.StatusOK, models.FieldListResponse{Success: true, Fields: fields})
}

// handleCreateField forwards a field whose coordinates the browser already
// encoded.
func (a *App) handleCreateField(w http.ResponseWriter, r *http.Request) {
	var req models.CreateFieldReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	f, err := a.client.CreateFieldRaw(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), riskclient.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusCreated, models.FieldResponse{Success: true, Field: *f})
}

// handleGetField returns a single field by id.
func (a *App) handleGetField(w http.ResponseWriter, r *http.Request) {
	f, err := a.client.GetField(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), riskclient.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, models.FieldResponse{Success: true, Field: *f})
}

// handleDeleteField removes a field by id.
func (a *App) handleDeleteField(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.client.DeleteField(r.Context(), id); err != nil {
		writeError(w, statusFor(err), riskclient.UserMessage(err))
		return
	}
	a.log.Info(r.Context(), "field deleted", logging.String("field_id", id))
	writeJSON(w, http.StatusOK, models.DeleteResponse{Success: true, Message: "Tarla silindi"})
}

// handleSaveSelection saves the session's current region as a field.
func (a *App) handleSaveSelection(w http.ResponseWriter, r *http.Request) {
	sc := mustSession(r)

	var req saveSelectionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	f, err := a.client.CreateField(r.Context(), req.Name, sc.Selection.Current())
	if err != nil {
		writeError(w, statusFor(err), riskclient.UserMessage(err))
		return
	}
	a.log.Info(r.Context(), "selection saved as field",
		logging.String("session_id", sc.ID),
		logging.String("field_id", f.ID),
	)
	writeJSON(w, http.StatusCreated, models.FieldResponse{Success: true, Field: *f})
}
